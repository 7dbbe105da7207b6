package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

func TestIsNotFound(t *testing.T) {
	t.Run("matches wrapped no rows", func(t *testing.T) {
		if !isNotFound(fmt.Errorf("select: %w", sql.ErrNoRows)) {
			t.Fatalf("expected true for wrapped sql.ErrNoRows")
		}
	})

	t.Run("matches missing pick on update", func(t *testing.T) {
		if !IsNotFound(fmt.Errorf("update pick p1: %w", errPickNotFound)) {
			t.Fatalf("expected true for missing pick")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		if IsNotFound(fakeErr("pq: relation picks does not exist")) {
			t.Fatalf("expected false for unrelated error")
		}
	})
}

func TestBuildUpsertPicks(t *testing.T) {
	picks := []pick.Pick{
		{ID: "a", Sport: "NBA", GameDate: "2025-12-25", PickType: pick.TypeSpread, Odds: -110, Edge: 3.1},
		{ID: "b", Sport: "NFL", GameDate: "2025-12-25", PickType: pick.TypeTotal, Odds: -105, Edge: 2},
	}

	query, args, err := buildUpsertPicks(picks)
	if err != nil {
		t.Fatalf("build upsert: %v", err)
	}
	if !strings.HasPrefix(query, "INSERT INTO picks (public_id, sport, game_date,") {
		t.Fatalf("unexpected query prefix: %s", query)
	}
	wantSuffix := "ON CONFLICT (public_id) DO UPDATE SET odds = EXCLUDED.odds, edge = EXCLUDED.edge, fire_rating = EXCLUDED.fire_rating, source_endpoint = EXCLUDED.source_endpoint, source_tier = EXCLUDED.source_tier"
	if !strings.HasSuffix(query, wantSuffix) {
		t.Fatalf("upsert must only overwrite volatile columns:\n%s", query)
	}
	if len(args) != 2*len(pickColumns) {
		t.Fatalf("expected %d args, got %d", 2*len(pickColumns), len(args))
	}

	if _, _, err := buildUpsertPicks([]pick.Pick{{Sport: "NBA"}}); err == nil {
		t.Fatalf("expected error for pick without id")
	}
}

func TestBuildLockUpdate(t *testing.T) {
	at := time.Date(2025, 12, 25, 18, 0, 0, 0, time.UTC)

	t.Run("lock fills lockedAt from change time", func(t *testing.T) {
		query, args, err := buildLockUpdate("p1", pick.LockPatch{Locked: true, LockChangedAt: at})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		want := "UPDATE picks SET locked = $1, locked_at = $2, lock_changed_at = $3, updated_at = NOW() WHERE public_id = $4"
		if query != want {
			t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
		}
		lockedAt, ok := args[1].(sql.NullTime)
		if !ok || !lockedAt.Valid || !lockedAt.Time.Equal(at) {
			t.Fatalf("expected lockedAt %v, got %+v", at, args[1])
		}
	})

	t.Run("unlock clears lockedAt", func(t *testing.T) {
		stale := at.Add(-time.Hour)
		_, args, err := buildLockUpdate("p1", pick.LockPatch{Locked: false, LockedAt: &stale, LockChangedAt: at})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if lockedAt := args[1].(sql.NullTime); lockedAt.Valid {
			t.Fatalf("expected null lockedAt, got %+v", lockedAt)
		}
	})
}

func TestPickRowRoundTrip(t *testing.T) {
	at := time.Date(2025, 12, 25, 18, 0, 0, 0, time.UTC)
	in := pick.Pick{
		ID:            "p1",
		Sport:         "NBA",
		GameDate:      "2025-12-25",
		AwayTeam:      "Lakers",
		HomeTeam:      "Warriors",
		Segment:       pick.SegmentFullGame,
		PickType:      pick.TypeSpread,
		PickTeam:      "Lakers",
		Line:          "-4.5",
		Odds:          -110,
		Edge:          3.4,
		FireRating:    4,
		Locked:        true,
		LockedAt:      &at,
		LockChangedAt: at,
		Source:        pick.Source{Sport: "NBA", Endpoint: "https://feed/nba", Tier: pick.TierPrimary},
	}

	out := toPickRow(in).toDomain()
	if out.ID != in.ID || out.Line != in.Line || out.Source != in.Source {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if !out.Locked || out.LockedAt == nil || !out.LockedAt.Equal(at) {
		t.Fatalf("expected lock state to survive, got %+v", out)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("round-tripped pick invalid: %v", err)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
