package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/stretchr/testify/require"
)

func testPick(team string, edge float64) pick.Pick {
	p := pick.Pick{
		Sport:      "NFL",
		GameDate:   "2025-12-28",
		AwayTeam:   "Bears",
		HomeTeam:   "Packers",
		Segment:    pick.SegmentFullGame,
		PickType:   pick.TypeSpread,
		PickTeam:   team,
		Line:       "+3",
		Odds:       pick.DefaultOdds,
		Edge:       edge,
		FireRating: 2,
	}
	p.ID = pick.ComputeID(p)
	return p
}

func TestPickRepository_CreateKeepsLockState(t *testing.T) {
	ctx := context.Background()
	original := testPick("Bears", 1.5)
	repo := NewPickRepository([]pick.Pick{original})

	locked := original.WithLock(true, time.Date(2025, 12, 28, 15, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Update(ctx, original.ID, pick.PatchOf(locked)))

	refreshed := original
	refreshed.Edge = 4.0
	require.NoError(t, repo.Create(ctx, []pick.Pick{refreshed, testPick("Packers", 0.5)}))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, original.ID, got[0].ID)
	require.True(t, got[0].Locked)
	require.InDelta(t, 4.0, got[0].Edge, 1e-9)
}

func TestPickRepository_Errors(t *testing.T) {
	repo := NewPickRepository(nil)

	require.Error(t, repo.Create(context.Background(), []pick.Pick{{}}))
	require.Error(t, repo.Update(context.Background(), "missing", pick.LockPatch{Locked: true}))
}
