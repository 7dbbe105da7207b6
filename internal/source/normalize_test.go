package source

import (
	"errors"
	"testing"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

var testSource = pick.Source{Sport: pick.SportNBA, Endpoint: "http://primary/weekly-lineup/nba", Tier: pick.TierPrimary}

func TestNormalizer_PayloadShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "root array", raw: `[{"awayTeam":"Lakers","homeTeam":"Celtics","pickTeam":"Lakers","line":-3}]`, want: 1},
		{name: "data.picks", raw: `{"data":{"picks":[{"away":"Lakers","home":"Celtics","team":"Celtics","spread":"+3"}]}}`, want: 1},
		{name: "recommendations", raw: `{"recommendations":[{"matchup":"Lakers @ Celtics","pick":"Lakers -3.5"}]}`, want: 1},
		{name: "games with nested picks", raw: `{"games":[{"away_team":"Lakers","home_team":"Celtics","date":"2025-12-25","picks":[{"pick":"Over 221.5"},{"pick":"Lakers","market":"ml"}]}]}`, want: 2},
		{name: "empty collection", raw: `{"picks":[]}`, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			picks, err := NewNormalizer().Normalize([]byte(tc.raw), "2025-12-25", testSource)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if len(picks) != tc.want {
				t.Fatalf("expected %d picks, got %d: %+v", tc.want, len(picks), picks)
			}
			for _, p := range picks {
				if p.ID == "" || p.Source != testSource || p.GameDate != "2025-12-25" {
					t.Fatalf("incomplete pick %+v", p)
				}
			}
		})
	}
}

func TestNormalizer_GameFieldsAreInherited(t *testing.T) {
	t.Parallel()

	raw := `{"games":[{"away_team":"Lakers","home_team":"Celtics","game_time":"7:30 PM","picks":[
		{"pick":"Over 221.5","odds":"+100","edge":"5.1%"},
		{"pick_team":"Lakers","market":"moneyline","odds":145}
	]}]}`
	picks, err := NewNormalizer().Normalize([]byte(raw), "2025-12-25", testSource)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	over := picks[0]
	if over.PickType != pick.TypeTotal || over.PickDirection != "over" || over.PickTeam != "" || over.Line != "221.5" {
		t.Fatalf("unexpected total %+v", over)
	}
	if over.GameTime != "7:30 PM" || over.Odds != 100 || over.Edge != 5.1 || over.FireRating != 5 {
		t.Fatalf("unexpected inherited/volatile fields %+v", over)
	}

	ml := picks[1]
	if ml.PickType != pick.TypeMoneyline || ml.PickTeam != "Lakers" || ml.Odds != 145 || ml.FireRating != pick.DefaultFireRating {
		t.Fatalf("unexpected moneyline %+v", ml)
	}
}

func TestNormalizer_Defaults(t *testing.T) {
	t.Parallel()

	raw := `{"picks":[{"awayTeam":"Bills","homeTeam":"Chiefs","pickTeam":"Bills","line":"+2.5","odds":"n/a","edge":"big","period":"first half","gameDate":"2025-11-02T18:00:00Z"}]}`
	picks, err := NewNormalizer().Normalize([]byte(raw), "2025-11-03", testSource)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	p := picks[0]
	if p.Odds != pick.DefaultOdds || p.Edge != 0 || p.FireRating != pick.DefaultFireRating {
		t.Fatalf("expected defaults, got %+v", p)
	}
	if p.Segment != pick.SegmentFirstHalf || p.PickType != pick.TypeSpread || p.GameDate != "2025-11-02" {
		t.Fatalf("unexpected classification %+v", p)
	}
}

func TestNormalizer_DuplicatesCollapse(t *testing.T) {
	t.Parallel()

	raw := `[{"awayTeam":"Lakers","homeTeam":"Celtics","pickTeam":"Lakers","line":"4.5","odds":-110},
		{"awayTeam":"Lakers","homeTeam":"Celtics","pickTeam":"Lakers","line":"+4.5","odds":-120}]`
	picks, err := NewNormalizer().Normalize([]byte(raw), "2025-12-25", testSource)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(picks) != 1 || picks[0].Odds != -120 {
		t.Fatalf("expected one refreshed pick, got %+v", picks)
	}
}

func TestNormalizer_Malformed(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]string{
		"not json":          `<!doctype html>`,
		"no collection":     `{"status":"ok"}`,
		"no readable picks": `{"picks":[{"foo":"bar"},{"awayTeam":"Lakers"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewNormalizer().Normalize([]byte(raw), "2025-12-25", testSource); !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestNormalizer_CustomFieldRule(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(
		WithCollectionPaths("payload.bets"),
		WithFieldRule(FieldRule{Field: FieldAwayTeam, Paths: []string{"visitor.name"}}),
	)
	raw := `{"payload":{"bets":[{"visitor":{"name":"Heat"},"homeTeam":"Magic","pickTeam":"Heat","line":"-1"}]}}`
	picks, err := n.Normalize([]byte(raw), "2025-12-25", testSource)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(picks) != 1 || picks[0].AwayTeam != "Heat" {
		t.Fatalf("unexpected picks %+v", picks)
	}
}
