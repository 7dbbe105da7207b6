package pick

import (
	"testing"
	"time"
)

func TestPick_Validate(t *testing.T) {
	valid := lakersSpread()
	valid.ID = ComputeID(valid)

	tests := []struct {
		name    string
		mutate  func(*Pick)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Pick) {}},
		{name: "missing id", mutate: func(p *Pick) { p.ID = "" }, wantErr: true},
		{name: "bad date", mutate: func(p *Pick) { p.GameDate = "today" }, wantErr: true},
		{name: "unknown type", mutate: func(p *Pick) { p.PickType = "parlay" }, wantErr: true},
		{name: "locked without timestamp", mutate: func(p *Pick) { p.Locked = true }, wantErr: true},
		{name: "unlocked with timestamp", mutate: func(p *Pick) {
			now := time.Now()
			p.LockedAt = &now
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestPick_WithLockKeepsFlagAndTimestampConsistent(t *testing.T) {
	at := time.Date(2025, 12, 25, 18, 0, 0, 0, time.UTC)
	locked := lakersSpread().WithLock(true, at)
	if !locked.Locked || locked.LockedAt == nil || !locked.LockedAt.Equal(at) {
		t.Fatalf("unexpected locked state: %+v", locked)
	}

	unlocked := locked.WithLock(false, at.Add(time.Minute))
	if unlocked.Locked || unlocked.LockedAt != nil {
		t.Fatalf("unexpected unlocked state: %+v", unlocked)
	}
	if !unlocked.LockChangedAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("expected lock change timestamp to move forward")
	}
}

func TestNormalizeSportAndSegment(t *testing.T) {
	if got := NormalizeSport(" cbb "); got != SportNCAAM {
		t.Fatalf("NormalizeSport(cbb)=%q", got)
	}
	if got := NormalizeSport("cfb"); got != SportNCAAF {
		t.Fatalf("NormalizeSport(cfb)=%q", got)
	}
	if got := NormalizeSport("wnba"); got != "WNBA" {
		t.Fatalf("unknown sport should be upper-cased, got %q", got)
	}
	if got := NormalizeSegment("first_half"); got != SegmentFirstHalf {
		t.Fatalf("NormalizeSegment(first_half)=%q", got)
	}
	if got := NormalizeSegment(""); got != SegmentFullGame {
		t.Fatalf("NormalizeSegment(empty)=%q", got)
	}
	if got := NormalizePickType("ML"); got != TypeMoneyline {
		t.Fatalf("NormalizePickType(ML)=%q", got)
	}
	if got := InferPickType("Under", "220.5"); got != TypeTotal {
		t.Fatalf("InferPickType(under)=%q", got)
	}
}
