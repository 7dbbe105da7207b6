package usecase

import (
	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

var demoSource = pick.Source{Endpoint: "demo", Tier: pick.TierDemo}

var demoTemplates = []pick.Pick{
	{Sport: pick.SportNBA, AwayTeam: "Lakers", HomeTeam: "Celtics", PickType: pick.TypeSpread, PickTeam: "Lakers", Line: "+4.5", Odds: -110, Edge: 4.1, FireRating: 4, GameTime: "7:30 PM ET"},
	{Sport: pick.SportNBA, AwayTeam: "Warriors", HomeTeam: "Nuggets", PickType: pick.TypeTotal, PickDirection: "over", Line: "229.5", Odds: -108, Edge: 3.2, FireRating: 3, GameTime: "10:00 PM ET"},
	{Sport: pick.SportNCAAM, AwayTeam: "Duke", HomeTeam: "North Carolina", PickType: pick.TypeSpread, PickTeam: "North Carolina", Line: "-2.5", Odds: -112, Edge: 2.7, FireRating: 3, GameTime: "9:00 PM ET"},
	{Sport: pick.SportNFL, AwayTeam: "Bills", HomeTeam: "Chiefs", PickType: pick.TypeMoneyline, PickTeam: "Bills", Odds: 135, Edge: 5.4, FireRating: 5, GameTime: "4:25 PM ET"},
	{Sport: pick.SportNFL, AwayTeam: "Eagles", HomeTeam: "Cowboys", Segment: pick.SegmentFirstHalf, PickType: pick.TypeTotal, PickDirection: "under", Line: "24.5", Odds: -105, Edge: 2.1, FireRating: 2, GameTime: "8:20 PM ET"},
	{Sport: pick.SportNCAAF, AwayTeam: "Georgia", HomeTeam: "Alabama", PickType: pick.TypeSpread, PickTeam: "Georgia", Line: "+3", Odds: -110, Edge: 3.8, FireRating: 3, GameTime: "3:30 PM ET"},
}

// DemoPicks is the fixed dataset served when every source failed. It is
// limited to the requested sports when any of them has demo entries.
func DemoPicks(gameDate string, sports []string) []pick.Pick {
	wanted := make(map[string]struct{}, len(sports))
	for _, sport := range sports {
		wanted[pick.NormalizeSport(sport)] = struct{}{}
	}

	build := func(filter bool) []pick.Pick {
		out := make([]pick.Pick, 0, len(demoTemplates))
		for _, template := range demoTemplates {
			if _, ok := wanted[template.Sport]; filter && !ok {
				continue
			}
			p := template
			p.GameDate = gameDate
			p.Segment = pick.NormalizeSegment(p.Segment)
			p.Source = demoSource
			p.Source.Sport = p.Sport
			p.ID = pick.ComputeID(p)
			out = append(out, p)
		}
		return out
	}

	if picks := build(true); len(picks) > 0 {
		return picks
	}
	return build(false)
}

// IsDemo reports whether p came from the demo dataset.
func IsDemo(p pick.Pick) bool {
	return p.Source.Tier == pick.TierDemo
}
