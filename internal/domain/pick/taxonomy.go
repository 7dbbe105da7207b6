package pick

import "strings"

const (
	SportNBA   = "NBA"
	SportNCAAM = "NCAAM"
	SportNFL   = "NFL"
	SportNCAAF = "NCAAF"
)

const (
	TypeSpread    = "spread"
	TypeMoneyline = "moneyline"
	TypeTotal     = "total"
)

const (
	SegmentFullGame   = "FG"
	SegmentFirstHalf  = "1H"
	SegmentSecondHalf = "2H"
)

var sportAliases = map[string]string{
	"NBA":    SportNBA,
	"NCAAM":  SportNCAAM,
	"NCAAB":  SportNCAAM,
	"NCAAMB": SportNCAAM,
	"CBB":    SportNCAAM,
	"MBB":    SportNCAAM,
	"NFL":    SportNFL,
	"NCAAF":  SportNCAAF,
	"NCAAFB": SportNCAAF,
	"CFB":    SportNCAAF,
	"CFBS":   SportNCAAF,
}

var segmentAliases = map[string]string{
	"fg":          SegmentFullGame,
	"full":        SegmentFullGame,
	"full game":   SegmentFullGame,
	"fullgame":    SegmentFullGame,
	"game":        SegmentFullGame,
	"1h":          SegmentFirstHalf,
	"h1":          SegmentFirstHalf,
	"first half":  SegmentFirstHalf,
	"1st half":    SegmentFirstHalf,
	"2h":          SegmentSecondHalf,
	"h2":          SegmentSecondHalf,
	"second half": SegmentSecondHalf,
	"2nd half":    SegmentSecondHalf,
	"1q":          "1Q",
	"q1":          "1Q",
	"2q":          "2Q",
	"q2":          "2Q",
	"3q":          "3Q",
	"q3":          "3Q",
	"4q":          "4Q",
	"q4":          "4Q",
}

var pickTypeAliases = map[string]string{
	"spread":     TypeSpread,
	"spreads":    TypeSpread,
	"ats":        TypeSpread,
	"handicap":   TypeSpread,
	"moneyline":  TypeMoneyline,
	"money line": TypeMoneyline,
	"ml":         TypeMoneyline,
	"h2h":        TypeMoneyline,
	"total":      TypeTotal,
	"totals":     TypeTotal,
	"ou":         TypeTotal,
	"o/u":        TypeTotal,
	"over/under": TypeTotal,
}

// NormalizeSport collapses league aliases onto one canonical code. Unknown
// codes are upper-cased and kept.
func NormalizeSport(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	code = strings.ReplaceAll(code, " ", "")
	if canonical, ok := sportAliases[code]; ok {
		return canonical
	}
	return code
}

// SportPath is the lowercase path segment used in upstream URLs.
func SportPath(sport string) string {
	return strings.ToLower(NormalizeSport(sport))
}

func NormalizeSegment(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.Fields(strings.ReplaceAll(key, "_", " ")), " ")
	if key == "" {
		return SegmentFullGame
	}
	if canonical, ok := segmentAliases[key]; ok {
		return canonical
	}
	return strings.ToUpper(key)
}

// NormalizePickType returns the canonical market name, or "" when unknown.
func NormalizePickType(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.Fields(strings.ReplaceAll(key, "_", " ")), " ")
	return pickTypeAliases[key]
}

// InferPickType guesses the market when a source omits it.
func InferPickType(direction, line string) string {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "over", "under", "o", "u":
		return TypeTotal
	}
	if strings.TrimSpace(line) == "" {
		return TypeMoneyline
	}
	return TypeSpread
}
