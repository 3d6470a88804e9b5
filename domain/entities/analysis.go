package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Radar score bounds.
const (
	RadarMin = 1
	RadarMax = 10
)

// AnalysisResult is the fortune report produced by the external capability.
// Field order matches the wire contract.
type AnalysisResult struct {
	Title         string        `json:"title"`
	Summary       string        `json:"summary"`
	RadarData     RadarData     `json:"radarData"`
	Categories    Categories    `json:"categories"`
	DetectedLines DetectedLines `json:"detectedLines"`
}

type RadarData struct {
	Leadership    float64 `json:"leadership"`
	Communication float64 `json:"communication"`
	Logical       float64 `json:"logical"`
	Creative      float64 `json:"creative"`
	Empathy       float64 `json:"empathy"`
}

type Category struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type Categories struct {
	Nature   Category `json:"nature"`
	Love     Category `json:"love"`
	Money    Category `json:"money"`
	Relation Category `json:"relation"`
	Life     Category `json:"life"`
}

type DetectedLines struct {
	LifeLine  string `json:"lifeLine"`
	HeadLine  string `json:"headLine"`
	HeartLine string `json:"heartLine"`
}

// RadarAxis is one labelled spoke of the personality chart.
type RadarAxis struct {
	Key   string
	Label string
	Value float64
}

// Axes returns the five spokes in display order.
func (r RadarData) Axes() []RadarAxis {
	return []RadarAxis{
		{Key: "leadership", Label: "リーダーシップ", Value: r.Leadership},
		{Key: "communication", Label: "コミュ力", Value: r.Communication},
		{Key: "logical", Label: "論理的思考", Value: r.Logical},
		{Key: "creative", Label: "創造力", Value: r.Creative},
		{Key: "empathy", Label: "空気読み力", Value: r.Empathy},
	}
}

// CategoryEntry pairs a category with its fixed key.
type CategoryEntry struct {
	Key string
	Category
}

// Entries returns the five categories in display order.
func (c Categories) Entries() []CategoryEntry {
	return []CategoryEntry{
		{Key: "nature", Category: c.Nature},
		{Key: "love", Category: c.Love},
		{Key: "money", Category: c.Money},
		{Key: "relation", Category: c.Relation},
		{Key: "life", Category: c.Life},
	}
}

// PalmLine is one of the three major lines, ready for display.
type PalmLine struct {
	Key  string
	Name string
	Text string
}

// Entries returns heart, head and life lines in display order.
func (d DetectedLines) Entries() []PalmLine {
	return []PalmLine{
		{Key: "heartLine", Name: "感情線", Text: d.HeartLine},
		{Key: "headLine", Name: "知能線", Text: d.HeadLine},
		{Key: "lifeLine", Name: "生命線", Text: d.LifeLine},
	}
}

// wireResult mirrors AnalysisResult with pointers so absent keys can be told
// apart from zero values.
type wireResult struct {
	Title         *string         `json:"title"`
	Summary       *string         `json:"summary"`
	RadarData     *wireRadar      `json:"radarData"`
	Categories    *wireCategories `json:"categories"`
	DetectedLines *wireLines      `json:"detectedLines"`
}

type wireRadar struct {
	Leadership    *float64 `json:"leadership"`
	Communication *float64 `json:"communication"`
	Logical       *float64 `json:"logical"`
	Creative      *float64 `json:"creative"`
	Empathy       *float64 `json:"empathy"`
}

type wireCategory struct {
	Label *string `json:"label"`
	Text  *string `json:"text"`
}

type wireCategories struct {
	Nature   *wireCategory `json:"nature"`
	Love     *wireCategory `json:"love"`
	Money    *wireCategory `json:"money"`
	Relation *wireCategory `json:"relation"`
	Life     *wireCategory `json:"life"`
}

type wireLines struct {
	LifeLine  *string `json:"lifeLine"`
	HeadLine  *string `json:"headLine"`
	HeartLine *string `json:"heartLine"`
}

// ShapeError lists every missing key found while decoding a result.
type ShapeError struct {
	Missing []string
}

func (e *ShapeError) Error() string {
	return "missing keys: " + strings.Join(e.Missing, ", ")
}

// DecodeAnalysisResult parses text as an AnalysisResult and verifies that all
// seven top-level keys, five categories and three lines are present. Radar
// scores are clamped into [RadarMin, RadarMax]; the returned flag reports
// whether clamping happened.
func DecodeAnalysisResult(text string) (AnalysisResult, bool, error) {
	var wire wireResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &wire); err != nil {
		return AnalysisResult{}, false, err
	}

	var missing []string
	str := func(path string, p *string) string {
		if p == nil {
			missing = append(missing, path)
			return ""
		}
		return *p
	}
	num := func(path string, p *float64) float64 {
		if p == nil {
			missing = append(missing, path)
			return 0
		}
		return *p
	}
	cat := func(path string, c *wireCategory) Category {
		if c == nil {
			missing = append(missing, path)
			return Category{}
		}
		return Category{Label: str(path+".label", c.Label), Text: str(path+".text", c.Text)}
	}

	result := AnalysisResult{
		Title:   str("title", wire.Title),
		Summary: str("summary", wire.Summary),
	}
	if wire.RadarData == nil {
		missing = append(missing, "radarData")
	} else {
		r := wire.RadarData
		result.RadarData = RadarData{
			Leadership:    num("radarData.leadership", r.Leadership),
			Communication: num("radarData.communication", r.Communication),
			Logical:       num("radarData.logical", r.Logical),
			Creative:      num("radarData.creative", r.Creative),
			Empathy:       num("radarData.empathy", r.Empathy),
		}
	}
	if wire.Categories == nil {
		missing = append(missing, "categories")
	} else {
		c := wire.Categories
		result.Categories = Categories{
			Nature:   cat("categories.nature", c.Nature),
			Love:     cat("categories.love", c.Love),
			Money:    cat("categories.money", c.Money),
			Relation: cat("categories.relation", c.Relation),
			Life:     cat("categories.life", c.Life),
		}
	}
	if wire.DetectedLines == nil {
		missing = append(missing, "detectedLines")
	} else {
		l := wire.DetectedLines
		result.DetectedLines = DetectedLines{
			LifeLine:  str("detectedLines.lifeLine", l.LifeLine),
			HeadLine:  str("detectedLines.headLine", l.HeadLine),
			HeartLine: str("detectedLines.heartLine", l.HeartLine),
		}
	}
	if len(missing) > 0 {
		return AnalysisResult{}, false, &ShapeError{Missing: missing}
	}

	clamped := result.RadarData.clamp()
	return result, clamped, nil
}

func (r *RadarData) clamp() bool {
	changed := false
	for _, v := range []*float64{&r.Leadership, &r.Communication, &r.Logical, &r.Creative, &r.Empathy} {
		c := clampScore(*v)
		if c != *v {
			*v = c
			changed = true
		}
	}
	return changed
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return RadarMin
	}
	return math.Max(RadarMin, math.Min(RadarMax, v))
}

// Validate checks a result that was built in memory rather than decoded.
func (a AnalysisResult) Validate() error {
	for _, axis := range a.RadarData.Axes() {
		if axis.Value < RadarMin || axis.Value > RadarMax {
			return fmt.Errorf("radar %s out of range: %v", axis.Key, axis.Value)
		}
	}
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("title is empty")
	}
	return nil
}
