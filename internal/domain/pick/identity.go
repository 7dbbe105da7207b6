package pick

import (
	"math"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
)

const MaxIDLength = 255

// ComputeID derives the stable identity of a pick from its intrinsic
// attributes. Volatile fields (odds, edge, fire rating, lock state) never
// contribute, so a re-fetch of the same market always maps onto the same id.
func ComputeID(p Pick) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	pickType := NormalizePickType(p.PickType)
	if pickType == "" {
		pickType = p.PickType
	}

	parts := [...]string{
		NormalizeSport(p.Sport),
		dateOnly(p.GameDate),
		p.AwayTeam,
		p.HomeTeam,
		pickType,
		NormalizeSegment(p.Segment),
		selection(pickType, p.PickDirection, p.PickTeam),
		normalizeLine(p.Line),
	}
	for i, part := range parts {
		if i > 0 {
			_ = buf.WriteByte('_')
		}
		appendSlug(buf, part)
	}

	if buf.Len() > MaxIDLength {
		return string(buf.B[:MaxIDLength])
	}
	return buf.String()
}

// Dedupe assigns ids and collapses repeated picks. The first occurrence keeps
// its position; later occurrences refresh its volatile fields.
func Dedupe(picks []Pick) []Pick {
	out := make([]Pick, 0, len(picks))
	index := make(map[string]int, len(picks))
	for _, p := range picks {
		if p.ID == "" {
			p.ID = ComputeID(p)
		}
		if pos, ok := index[p.ID]; ok {
			out[pos] = Refresh(out[pos], p)
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

func Slugify(value string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	appendSlug(buf, value)
	return buf.String()
}

func appendSlug(buf *bytebufferpool.ByteBuffer, value string) {
	start := buf.Len()
	pendingDash := false
	for _, r := range strings.ToLower(value) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingDash = buf.Len() > start
			continue
		}
		if pendingDash {
			_ = buf.WriteByte('-')
			pendingDash = false
		}
		_ = buf.WriteByte(byte(r))
	}
}

func dateOnly(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 10 {
		return raw[:10]
	}
	return raw
}

func selection(pickType, direction, team string) string {
	direction = strings.ToLower(strings.TrimSpace(direction))
	switch direction {
	case "o":
		direction = "over"
	case "u":
		direction = "under"
	}
	if pickType == TypeTotal && direction != "" {
		return direction
	}
	if strings.TrimSpace(team) != "" {
		return team
	}
	return direction
}

// normalizeLine makes "+4.5" and "4.5" equal and keeps the sign of negative
// lines, which slugging would otherwise drop.
func normalizeLine(raw string) string {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "":
		return ""
	case "pk", "pick", "pickem", "even", "ev":
		return "0"
	}

	parsed, err := strconv.ParseFloat(strings.TrimPrefix(value, "+"), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return value
	}
	if parsed == 0 {
		return "0"
	}
	formatted := strconv.FormatFloat(math.Abs(parsed), 'f', -1, 64)
	if parsed < 0 {
		return "m" + formatted
	}
	return formatted
}
