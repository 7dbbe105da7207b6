package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/platform/metrics"
	"github.com/riskibarqy/pickboard/internal/source"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const defaultAggregatorConcurrency = 4

// SourceCatalog resolves a sport to its fetcher. *source.Set satisfies it.
type SourceCatalog interface {
	Get(sport string) (source.PickFetcher, bool)
	Sports() []string
}

type SourceFailure struct {
	Sport   string `json:"sport"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

type AggregateResult struct {
	DateKey      string          `json:"dateKey"`
	Picks        []pick.Pick     `json:"picks"`
	Errors       []SourceFailure `json:"errors"`
	FallbackUsed bool            `json:"fallbackUsed"`
	FetchedAt    time.Time       `json:"fetchedAt"`
}

type AggregatorConfig struct {
	MaxConcurrency int
	Location       *time.Location
}

// Aggregator fans out to every requested sport and merges what comes back.
// Per-sport failures are reported in the result, never returned as errors.
type Aggregator struct {
	sources        SourceCatalog
	maxConcurrency int
	location       *time.Location
	metrics        *metrics.Recorder
	logger         *logging.Logger
	now            func() time.Time
}

func NewAggregator(sources SourceCatalog, cfg AggregatorConfig, recorder *metrics.Recorder, logger *logging.Logger) *Aggregator {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = defaultAggregatorConcurrency
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{
		sources:        sources,
		maxConcurrency: cfg.MaxConcurrency,
		location:       cfg.Location,
		metrics:        recorder,
		logger:         logger.Named("aggregator"),
		now:            time.Now,
	}
}

func (a *Aggregator) Sports() []string {
	return a.sources.Sports()
}

type sportOutcome struct {
	index   int
	picks   []pick.Pick
	failure *SourceFailure
}

func (a *Aggregator) FetchAll(ctx context.Context, sports []string, dateKey string) (AggregateResult, error) {
	requested := canonicalSports(sports)
	if len(requested) == 0 {
		return AggregateResult{}, fmt.Errorf("%w: at least one sport is required", ErrInvalidInput)
	}
	key, err := source.NormalizeDateKey(dateKey, a.now(), a.location)
	if err != nil {
		return AggregateResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ctx, span := startUsecaseSpan(ctx, "usecase.Aggregator.FetchAll",
		attribute.StringSlice("sports", requested),
		attribute.String("date_key", key),
	)
	defer span.End()

	workers := pool.NewWithResults[sportOutcome]().WithMaxGoroutines(a.maxConcurrency)
	for i, sport := range requested {
		workers.Go(func() sportOutcome {
			return a.fetchSport(ctx, i, sport, key)
		})
	}
	outcomes := workers.Wait()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })

	result := AggregateResult{DateKey: key, FetchedAt: a.now(), Errors: []SourceFailure{}}
	var all []pick.Pick
	for _, outcome := range outcomes {
		if outcome.failure != nil {
			result.Errors = append(result.Errors, *outcome.failure)
			a.metrics.SourceFailure(outcome.failure.Sport, outcome.failure.Kind)
			continue
		}
		all = append(all, outcome.picks...)
	}

	result.Picks = sortByEdge(pick.Dedupe(all))
	if len(result.Picks) == 0 && len(result.Errors) > 0 {
		result.Picks = sortByEdge(DemoPicks(key, requested))
		result.FallbackUsed = true
		a.logger.WarnContext(ctx, "every source failed, serving demo picks",
			"date_key", key,
			"failures", len(result.Errors),
		)
	}
	a.metrics.AggregateRun(result.FallbackUsed)

	return result, nil
}

func (a *Aggregator) fetchSport(ctx context.Context, index int, sport, dateKey string) sportOutcome {
	fetcher, ok := a.sources.Get(sport)
	if !ok {
		return sportOutcome{index: index, failure: &SourceFailure{
			Sport:   sport,
			Message: fmt.Sprintf("no source configured for %s", sport),
			Kind:    source.KindUnknownSport,
		}}
	}

	payload, err := fetcher.FetchPicks(ctx, dateKey)
	if err != nil {
		a.logger.WarnContext(ctx, "sport fetch failed", "sport", sport, "date_key", dateKey, "error", err)
		return sportOutcome{index: index, failure: &SourceFailure{
			Sport:   sport,
			Message: err.Error(),
			Kind:    source.Kind(err),
		}}
	}
	return sportOutcome{index: index, picks: payload.Picks}
}

func canonicalSports(sports []string) []string {
	seen := make(map[string]struct{}, len(sports))
	out := make([]string, 0, len(sports))
	for _, raw := range sports {
		sport := pick.NormalizeSport(raw)
		if sport == "" {
			continue
		}
		if _, dup := seen[sport]; dup {
			continue
		}
		seen[sport] = struct{}{}
		out = append(out, sport)
	}
	return out
}

// SplitSports parses a comma separated sports list.
func SplitSports(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return canonicalSports(strings.Split(raw, ","))
}

func sortByEdge(picks []pick.Pick) []pick.Pick {
	sort.SliceStable(picks, func(i, j int) bool {
		if picks[i].Edge != picks[j].Edge {
			return picks[i].Edge > picks[j].Edge
		}
		return picks[i].ID < picks[j].ID
	})
	return picks
}
