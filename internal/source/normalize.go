package source

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

// Normalized field names.
const (
	FieldGameDate      = "gameDate"
	FieldGameTime      = "gameTime"
	FieldAwayTeam      = "awayTeam"
	FieldHomeTeam      = "homeTeam"
	FieldMatchup       = "matchup"
	FieldSegment       = "segment"
	FieldPickType      = "pickType"
	FieldPickDirection = "pickDirection"
	FieldPickTeam      = "pickTeam"
	FieldLine          = "line"
	FieldOdds          = "odds"
	FieldEdge          = "edge"
	FieldFireRating    = "fireRating"
)

// FieldRule lists the dotted paths probed, in order, for one field.
type FieldRule struct {
	Field string
	Paths []string
}

var defaultFieldRules = []FieldRule{
	{Field: FieldGameDate, Paths: []string{"gameDate", "game_date", "date", "game.date", "game.gameDate", "commence_time", "start_time", "startTime"}},
	{Field: FieldGameTime, Paths: []string{"gameTime", "game_time", "time", "game.time", "game.gameTime", "tipoff", "kickoff"}},
	{Field: FieldAwayTeam, Paths: []string{"awayTeam", "away_team", "away", "teams.away", "game.awayTeam", "game.away_team", "game.away"}},
	{Field: FieldHomeTeam, Paths: []string{"homeTeam", "home_team", "home", "teams.home", "game.homeTeam", "game.home_team", "game.home"}},
	{Field: FieldMatchup, Paths: []string{"matchup", "game.matchup", "event", "event_name"}},
	{Field: FieldSegment, Paths: []string{"segment", "period", "game_segment", "market_segment"}},
	{Field: FieldPickType, Paths: []string{"pickType", "pick_type", "market", "market_type", "bet_type", "type"}},
	{Field: FieldPickDirection, Paths: []string{"pickDirection", "pick_direction", "direction", "side", "over_under"}},
	{Field: FieldPickTeam, Paths: []string{"pickTeam", "pick_team", "team", "selection", "pick"}},
	{Field: FieldLine, Paths: []string{"line", "spread", "total", "points", "handicap", "number"}},
	{Field: FieldOdds, Paths: []string{"odds", "price", "american_odds", "odds_american", "juice"}},
	{Field: FieldEdge, Paths: []string{"edge", "edge_pct", "edgePercent", "edge_percent", "ev", "expected_value"}},
	{Field: FieldFireRating, Paths: []string{"fireRating", "fire_rating", "fire", "confidence", "confidence_label", "rating", "tier", "stars"}},
}

var defaultCollectionPaths = []string{
	"picks", "data.picks", "data", "recommendations", "plays", "items",
	"results", "lineup", "weekly_lineup", "weeklyLineup",
}

var defaultGamePaths = []string{"games", "data.games"}

var (
	trailingNumber = regexp.MustCompile(`^(.*?)\s*([+-]?\d+(?:\.\d+)?)$`)
	matchupSplit   = regexp.MustCompile(`(?i)\s+(?:@|at|vs\.?|v\.?)\s+`)
)

// Normalizer maps heterogeneous upstream payloads onto pick.Pick through
// ordered path rules rather than per-source code.
type Normalizer struct {
	rules       map[string][]string
	collections []string
	games       []string
}

type NormalizerOption func(*Normalizer)

// WithFieldRule prepends paths to a field's rule.
func WithFieldRule(rule FieldRule) NormalizerOption {
	return func(n *Normalizer) {
		n.rules[rule.Field] = append(append([]string{}, rule.Paths...), n.rules[rule.Field]...)
	}
}

func WithCollectionPaths(paths ...string) NormalizerOption {
	return func(n *Normalizer) {
		n.collections = append(append([]string{}, paths...), n.collections...)
	}
}

func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		rules:       make(map[string][]string, len(defaultFieldRules)),
		collections: append([]string{}, defaultCollectionPaths...),
		games:       append([]string{}, defaultGamePaths...),
	}
	for _, rule := range defaultFieldRules {
		n.rules[rule.Field] = append([]string{}, rule.Paths...)
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize decodes raw and returns deduplicated picks stamped with src. A
// payload with no recognizable pick collection, or one where no entry could
// be read, fails with ErrParse.
func (n *Normalizer) Normalize(raw []byte, dateKey string, src pick.Source) ([]pick.Pick, error) {
	var doc any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, crerr.Wrapf(ErrParse, "decode %s payload: %v", src.Tier, err)
	}
	return n.NormalizeDocument(doc, dateKey, src)
}

func (n *Normalizer) NormalizeDocument(doc any, dateKey string, src pick.Source) ([]pick.Pick, error) {
	items, ok := n.collect(doc)
	if !ok {
		return nil, crerr.Wrapf(ErrParse, "%s payload has no pick collection", src.Tier)
	}

	picks := make([]pick.Pick, 0, len(items))
	for _, item := range items {
		if p, ok := n.normalizeItem(item, dateKey, src); ok {
			picks = append(picks, p)
		}
	}
	if len(picks) == 0 && len(items) > 0 {
		return nil, crerr.Wrapf(ErrParse, "%s payload: none of %d entries is a pick", src.Tier, len(items))
	}
	return pick.Dedupe(picks), nil
}

func (n *Normalizer) collect(doc any) ([]map[string]any, bool) {
	if list, ok := doc.([]any); ok {
		return objects(list), true
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, false
	}

	for _, path := range n.games {
		if games, ok := lookup(root, path).([]any); ok {
			return flattenGames(games), true
		}
	}
	for _, path := range n.collections {
		if list, ok := lookup(root, path).([]any); ok {
			return objects(list), true
		}
	}
	return nil, false
}

// flattenGames merges each game's fields under every one of its picks; pick
// keys win.
func flattenGames(games []any) []map[string]any {
	var out []map[string]any
	for _, g := range games {
		game, ok := g.(map[string]any)
		if !ok {
			continue
		}
		list, _ := game["picks"].([]any)
		for _, item := range objects(list) {
			merged := make(map[string]any, len(game)+len(item))
			for k, v := range game {
				if k != "picks" {
					merged[k] = v
				}
			}
			for k, v := range item {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (n *Normalizer) normalizeItem(item map[string]any, dateKey string, src pick.Source) (pick.Pick, bool) {
	away := n.text(item, FieldAwayTeam)
	home := n.text(item, FieldHomeTeam)
	if away == "" || home == "" {
		away, home = splitMatchup(n.text(item, FieldMatchup))
	}
	if away == "" || home == "" {
		return pick.Pick{}, false
	}

	team := n.text(item, FieldPickTeam)
	line := n.text(item, FieldLine)
	if line == "" {
		team, line = splitSelection(team)
	}
	direction := normalizeDirection(n.text(item, FieldPickDirection))
	if direction == "" {
		if d := normalizeDirection(team); d != "" {
			direction, team = d, ""
		}
	}

	pickType := pick.NormalizePickType(n.text(item, FieldPickType))
	if pickType == "" {
		pickType = pick.InferPickType(direction, line)
	}

	edge, hasEdge := parseEdge(n.value(item, FieldEdge))
	p := pick.Pick{
		Sport:         src.Sport,
		GameDate:      normalizeGameDate(n.text(item, FieldGameDate), dateKey),
		GameTime:      n.text(item, FieldGameTime),
		AwayTeam:      away,
		HomeTeam:      home,
		Segment:       pick.NormalizeSegment(n.text(item, FieldSegment)),
		PickType:      pickType,
		PickDirection: direction,
		PickTeam:      team,
		Line:          line,
		Odds:          parseOdds(n.value(item, FieldOdds)),
		Edge:          edge,
		FireRating:    pick.ResolveFireRating(n.value(item, FieldFireRating), edge, hasEdge),
		Source:        src,
	}
	p.ID = pick.ComputeID(p)
	return p, true
}

func (n *Normalizer) value(item map[string]any, field string) any {
	for _, path := range n.rules[field] {
		if v := lookup(item, path); v != nil {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			if _, nested := v.(map[string]any); nested {
				continue
			}
			return v
		}
	}
	return nil
}

func (n *Normalizer) text(item map[string]any, field string) string {
	return stringOf(n.value(item, field))
}

func lookup(obj map[string]any, path string) any {
	if path == "" {
		return obj
	}
	var current any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return ""
	default:
		return ""
	}
}

func splitMatchup(raw string) (string, string) {
	parts := matchupSplit.Split(strings.TrimSpace(raw), 2)
	if len(parts) != 2 {
		return "", ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// splitSelection separates "Lakers -4.5" into team and line.
func splitSelection(raw string) (string, string) {
	m := trailingNumber.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return raw, ""
	}
	return strings.TrimSpace(m[1]), m[2]
}

func normalizeDirection(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "over", "o":
		return "over"
	case "under", "u":
		return "under"
	case "home":
		return "home"
	case "away":
		return "away"
	default:
		return ""
	}
}

var gameDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", dateKeyLayout, "01/02/2006"}

func normalizeGameDate(raw, dateKey string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dateKey
	}
	for _, layout := range gameDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateKeyLayout)
		}
	}
	if len(raw) >= len(dateKeyLayout) {
		return raw[:len(dateKeyLayout)]
	}
	return dateKey
}

func parseOdds(v any) int {
	switch t := v.(type) {
	case float64:
		if t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return pick.DefaultOdds
		}
		return int(math.Round(t))
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "even" || s == "ev" {
			return 100
		}
		f, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
		if err != nil || f == 0 {
			return pick.DefaultOdds
		}
		return int(math.Round(f))
	default:
		return pick.DefaultOdds
	}
}

// parseEdge reads edges in percentage points ("3.5", "3.5%", 3.5).
func parseEdge(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		f, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
