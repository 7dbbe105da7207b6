package source

import (
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
)

const dateKeyLayout = "2006-01-02"

var dateKeyLayouts = []string{
	dateKeyLayout,
	"20060102",
	time.RFC3339,
	"01/02/2006",
}

// NormalizeDateKey turns "", "today", "tomorrow", "yesterday" and the accepted
// date spellings into YYYY-MM-DD in loc.
func NormalizeDateKey(raw string, now time.Time, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "", "today":
		return local.Format(dateKeyLayout), nil
	case "tomorrow":
		return local.AddDate(0, 0, 1).Format(dateKeyLayout), nil
	case "yesterday":
		return local.AddDate(0, 0, -1).Format(dateKeyLayout), nil
	}

	for _, layout := range dateKeyLayouts {
		if parsed, err := time.ParseInLocation(layout, strings.ToUpper(value), loc); err == nil {
			if layout == time.RFC3339 {
				parsed = parsed.In(loc)
			}
			return parsed.Format(dateKeyLayout), nil
		}
	}

	return "", crerr.Wrapf(ErrInvalidDateKey, "%q", raw)
}
