package source

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeDateKey(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// 03:00 UTC on the 26th is still the 25th in New York.
	now := time.Date(2025, 12, 26, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "2025-12-25"},
		{raw: "Today", want: "2025-12-25"},
		{raw: "tomorrow", want: "2025-12-26"},
		{raw: "yesterday", want: "2025-12-24"},
		{raw: "2025-01-05", want: "2025-01-05"},
		{raw: "20250105", want: "2025-01-05"},
		{raw: "01/05/2025", want: "2025-01-05"},
		{raw: "2025-01-05T02:00:00Z", want: "2025-01-04"},
	}
	for _, tc := range tests {
		got, err := NormalizeDateKey(tc.raw, now, loc)
		if err != nil {
			t.Fatalf("%q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %s want %s", tc.raw, got, tc.want)
		}
	}

	if _, err := NormalizeDateKey("2025-13-40", now, loc); !errors.Is(err, ErrInvalidDateKey) {
		t.Fatalf("expected ErrInvalidDateKey, got %v", err)
	}
}
