package entities

// ZodiacSign is one of the twelve western zodiac signs, carried as its
// Japanese name. The literal values are part of the wire contract.
type ZodiacSign string

const (
	ZodiacAries       ZodiacSign = "牡羊座"
	ZodiacTaurus      ZodiacSign = "牡牛座"
	ZodiacGemini      ZodiacSign = "双子座"
	ZodiacCancer      ZodiacSign = "蟹座"
	ZodiacLeo         ZodiacSign = "獅子座"
	ZodiacVirgo       ZodiacSign = "乙女座"
	ZodiacLibra       ZodiacSign = "天秤座"
	ZodiacScorpio     ZodiacSign = "蠍座"
	ZodiacSagittarius ZodiacSign = "射手座"
	ZodiacCapricorn   ZodiacSign = "山羊座"
	ZodiacAquarius    ZodiacSign = "水瓶座"
	ZodiacPisces      ZodiacSign = "魚座"
)

// ZodiacEntry is a display row of the sign picker.
type ZodiacEntry struct {
	ID   string
	Sign ZodiacSign
	Icon string
}

var zodiacList = []ZodiacEntry{
	{ID: "Aries", Sign: ZodiacAries, Icon: "♈"},
	{ID: "Taurus", Sign: ZodiacTaurus, Icon: "♉"},
	{ID: "Gemini", Sign: ZodiacGemini, Icon: "♊"},
	{ID: "Cancer", Sign: ZodiacCancer, Icon: "♋"},
	{ID: "Leo", Sign: ZodiacLeo, Icon: "♌"},
	{ID: "Virgo", Sign: ZodiacVirgo, Icon: "♍"},
	{ID: "Libra", Sign: ZodiacLibra, Icon: "♎"},
	{ID: "Scorpio", Sign: ZodiacScorpio, Icon: "♏"},
	{ID: "Sagittarius", Sign: ZodiacSagittarius, Icon: "♐"},
	{ID: "Capricorn", Sign: ZodiacCapricorn, Icon: "♑"},
	{ID: "Aquarius", Sign: ZodiacAquarius, Icon: "♒"},
	{ID: "Pisces", Sign: ZodiacPisces, Icon: "♓"},
}

// ZodiacList returns the twelve signs in calendar order.
func ZodiacList() []ZodiacEntry {
	out := make([]ZodiacEntry, len(zodiacList))
	copy(out, zodiacList)
	return out
}

// Valid reports whether z is one of the twelve literal sign names.
func (z ZodiacSign) Valid() bool {
	for _, entry := range zodiacList {
		if entry.Sign == z {
			return true
		}
	}
	return false
}

func (z ZodiacSign) String() string {
	return string(z)
}

// ParseZodiac accepts either the Japanese sign name or its English id
// (case-sensitive, e.g. "Aries").
func ParseZodiac(s string) (ZodiacSign, bool) {
	entry, ok := lookupZodiac(s)
	if !ok {
		return "", false
	}
	return entry.Sign, true
}

func lookupZodiac(s string) (ZodiacEntry, bool) {
	for _, entry := range zodiacList {
		if string(entry.Sign) == s || entry.ID == s {
			return entry, true
		}
	}
	return ZodiacEntry{}, false
}
