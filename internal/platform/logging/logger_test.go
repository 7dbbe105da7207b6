package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLogger_WritesKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf).Named("source.nba")

	logger.InfoContext(context.Background(), "fetch completed", "tier", "primary", "error", errors.New("none"))
	logger.Debug("filtered out")

	out := buf.String()
	for _, want := range []string{`"msg":"fetch completed"`, `"tier":"primary"`, `"logger":"source.nba"`, `"error":"none"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
	if strings.Contains(out, "filtered out") {
		t.Fatalf("debug line must be filtered at info level")
	}
	if strings.Contains(out, "trace_id") {
		t.Fatalf("no span in context, trace_id must be absent")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"loud":    LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%s want %s", in, got, want)
		}
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("With on nil logger must return a usable logger")
	}
}

func TestSetMirror_ReceivesEnabledRecords(t *testing.T) {
	var got []string
	SetMirror(func(_ context.Context, level Level, msg string, args ...any) {
		got = append(got, level.String()+":"+msg)
	})
	t.Cleanup(func() { SetMirror(nil) })

	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)
	logger.WarnContext(context.Background(), "breaker open", "sport", "NBA")
	logger.Debug("below level")

	if len(got) != 1 || got[0] != "warn:breaker open" {
		t.Fatalf("unexpected mirrored records %v", got)
	}

	SetMirror(nil)
	logger.Info("after removal")
	if len(got) != 1 {
		t.Fatalf("mirror must be detached, got %v", got)
	}
}
