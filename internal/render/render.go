package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/internal/flow"
)

// RadarFullMark is the top of the radar scale.
const RadarFullMark = 10

// Renderer draws flow phases as text.
type Renderer struct {
	styles Styles
	width  int
}

// NewRenderer creates a Renderer with the default styles.
func NewRenderer(width int) *Renderer {
	if width <= 0 {
		width = 60
	}
	return &Renderer{styles: DefaultStyles(), width: width}
}

// Phase renders any phase of the flow.
func (r *Renderer) Phase(p flow.Phase) string {
	switch p := p.(type) {
	case flow.Landing:
		return r.landing(p)
	case flow.Capture:
		return r.capture(p)
	case flow.ZodiacSelect:
		return r.zodiac(p)
	case flow.Loading:
		return r.loading(p)
	case flow.Result:
		return r.Result(p.Zodiac, p.Result)
	default:
		return ""
	}
}

func (r *Renderer) landing(p flow.Landing) string {
	lines := []string{
		r.styles.Subtitle.Render("— 運命を読み解く —"),
		r.styles.Title.Render("2026年 あなたを鑑定"),
		r.styles.Body.Render("手相 × 星座"),
		"",
	}
	if p.Notice != "" {
		lines = append(lines, r.styles.Notice.Render(p.Notice), "")
	}
	if p.ActionSheetOpen {
		sheet := []string{r.styles.Heading.Render("鑑定方法を選択")}
		for i, action := range flow.ActionSheet() {
			sheet = append(sheet, fmt.Sprintf("%d. %s", i+1, action.Label))
		}
		lines = append(lines, r.styles.Card.Render(strings.Join(sheet, "\n")))
	} else {
		lines = append(lines, r.styles.Button.Render("[ 鑑定を始める ]"))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) capture(p flow.Capture) string {
	lines := []string{r.styles.Title.Render("手相を撮影してください")}
	switch {
	case p.Image != nil:
		lines = append(lines,
			r.styles.Body.Render(fmt.Sprintf("画像 %dx%d (%s, %d bytes)", p.Image.Width, p.Image.Height, p.Image.MIMEType, len(p.Image.Data))),
			r.styles.Button.Render("[ 撮り直す ]  [ 次へ ]"))
	case p.CameraAvailable:
		lines = append(lines,
			r.styles.Muted.Render("ガイドに合わせてください"),
			r.styles.Button.Render("[ 撮影 ]  [ アルバムから選択 ]"))
	default:
		lines = append(lines,
			r.styles.Muted.Render("カメラを利用できません"),
			r.styles.Button.Render("[ アルバムから選択 ]"))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) zodiac(p flow.ZodiacSelect) string {
	lines := []string{
		r.styles.Title.Render("最後に、星座を選択"),
		r.styles.Muted.Render("手相と星座を掛け合わせ、多角的に鑑定します"),
		"",
		r.ZodiacGrid(p.Selected),
		"",
	}
	if p.CanProceed() {
		lines = append(lines, r.styles.Button.Render("[ 鑑定する ]"))
	} else {
		lines = append(lines, r.styles.Disabled.Render("[ 鑑定する ]"))
	}
	return strings.Join(lines, "\n")
}

// ZodiacGrid lays the twelve signs out three per row, highlighting selected.
func (r *Renderer) ZodiacGrid(selected entities.ZodiacSign) string {
	var rows []string
	var row []string
	for i, entry := range entities.ZodiacList() {
		cell := fmt.Sprintf("%2d %s %s", i+1, entry.Icon, entry.Sign)
		if entry.Sign == selected {
			cell = r.styles.Selected.Render(cell)
		}
		row = append(row, lipgloss.NewStyle().Width(16).Render(cell))
		if len(row) == 3 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	return strings.Join(rows, "\n")
}

func (r *Renderer) loading(p flow.Loading) string {
	return strings.Join([]string{
		r.styles.Title.Render("鑑定結果を作成しています..."),
		r.styles.Subtitle.Render(p.Message),
	}, "\n")
}

// Result renders a finished reading.
func (r *Renderer) Result(zodiac entities.ZodiacSign, result entities.AnalysisResult) string {
	sections := []string{
		r.styles.Muted.Render("Palmistry × Horoscope"),
		r.styles.Title.Render(result.Title),
		r.styles.Body.Width(r.width).Render(result.Summary),
	}
	if zodiac != "" {
		sections = append(sections, r.styles.Subtitle.Render(string(zodiac)))
	}

	sections = append(sections, "", r.styles.Heading.Render("性格・本質のチャート"), r.Radar(result.RadarData))

	lines := []string{r.styles.Heading.Render("主要三線の解析結果")}
	for _, line := range result.DetectedLines.Entries() {
		lines = append(lines, r.styles.Button.Render(line.Name), r.styles.Body.Width(r.width).Render(line.Text))
	}
	sections = append(sections, "", strings.Join(lines, "\n"))

	categories := []string{r.styles.Heading.Render("運勢テーマ別鑑定")}
	for _, entry := range result.Categories.Entries() {
		card := r.styles.Button.Render(entry.Category.Label) + "\n" + r.styles.Body.Width(r.width-4).Render(entry.Category.Text)
		categories = append(categories, r.styles.Card.Render(card))
	}
	sections = append(sections, "", strings.Join(categories, "\n"))

	return strings.Join(sections, "\n")
}

// Radar renders the five personality axes as bars out of RadarFullMark.
func (r *Renderer) Radar(data entities.RadarData) string {
	axes := data.Axes()
	labelWidth := 0
	for _, axis := range axes {
		labelWidth = max(labelWidth, lipgloss.Width(axis.Label))
	}

	rows := make([]string, 0, len(axes))
	for _, axis := range axes {
		label := axis.Label + strings.Repeat(" ", labelWidth-lipgloss.Width(axis.Label))
		rows = append(rows, fmt.Sprintf("%s %s %s", label, r.bar(axis.Value), formatScore(axis.Value)))
	}
	return strings.Join(rows, "\n")
}

func (r *Renderer) bar(value float64) string {
	filled := BarCells(value)
	return r.styles.BarFull.Render(strings.Repeat("■", filled)) +
		r.styles.BarEmpty.Render(strings.Repeat("□", RadarFullMark-filled))
}

// BarCells returns how many of the RadarFullMark cells a score fills.
func BarCells(value float64) int {
	cells := int(math.Round(value))
	return min(max(cells, 0), RadarFullMark)
}

func formatScore(v float64) string {
	return fmt.Sprintf("%g/%d", v, RadarFullMark)
}
