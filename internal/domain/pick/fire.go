package pick

import (
	"math"
	"strconv"
	"strings"
)

const flameEmoji = "🔥"

var fireLabels = map[string]int{
	"max":      5,
	"elite":    5,
	"strong":   4,
	"good":     3,
	"standard": 2,
	"low":      1,
}

// NormalizeFireRating collapses the confidence representations used by
// upstream sources (word labels, percentage strings, probabilities, small
// integers, flame strings) onto the 0-5 scale. Anything unrecognised maps to
// DefaultFireRating.
func NormalizeFireRating(raw any) int {
	switch v := raw.(type) {
	case nil:
		return DefaultFireRating
	case int:
		return clampFire(v)
	case int32:
		return clampFire(int(v))
	case int64:
		return clampFire(int(v))
	case float32:
		return fireFromNumber(float64(v))
	case float64:
		return fireFromNumber(v)
	case string:
		return fireFromString(v)
	default:
		return DefaultFireRating
	}
}

// ResolveFireRating is NormalizeFireRating with an edge fallback for sources
// that omit confidence but publish an edge.
func ResolveFireRating(raw any, edge float64, hasEdge bool) int {
	if isBlankRating(raw) && hasEdge {
		return fireFromEdge(edge)
	}
	return NormalizeFireRating(raw)
}

func fireFromString(raw string) int {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return DefaultFireRating
	}
	if rating, ok := fireLabels[value]; ok {
		return rating
	}
	if flames := strings.Count(value, flameEmoji); flames > 0 {
		return clampFire(flames)
	}
	if strings.HasSuffix(value, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, "%")), 64)
		if err != nil {
			return DefaultFireRating
		}
		return fireFromPercent(pct)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return DefaultFireRating
	}
	return fireFromNumber(parsed)
}

func fireFromNumber(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultFireRating
	}
	if v == math.Trunc(v) {
		return clampFire(int(v))
	}
	if v > 0 && v < 1 {
		return fireFromPercent(v * 100)
	}
	return DefaultFireRating
}

func fireFromPercent(pct float64) int {
	switch {
	case pct >= 80:
		return 5
	case pct >= 65:
		return 4
	case pct >= 50:
		return 3
	case pct >= 35:
		return 2
	default:
		return 1
	}
}

func fireFromEdge(edge float64) int {
	switch {
	case edge >= 5:
		return 5
	case edge >= 4:
		return 4
	case edge >= 3:
		return 3
	case edge >= 2:
		return 2
	default:
		return 1
	}
}

func clampFire(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxFireRating {
		return MaxFireRating
	}
	return v
}

func isBlankRating(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
