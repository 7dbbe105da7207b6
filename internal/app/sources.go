package app

import (
	"time"

	"github.com/riskibarqy/pickboard/internal/config"
	"github.com/riskibarqy/pickboard/internal/platform/fetch"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/platform/metrics"
	"github.com/riskibarqy/pickboard/internal/platform/resilience"
	"github.com/riskibarqy/pickboard/internal/source"
)

func buildSources(
	cfg config.Config,
	client *fetch.Client,
	live *source.LiveRegistry,
	location *time.Location,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *source.Set {
	overrides := make(map[string]source.Endpoints, len(cfg.SourceOverrides))
	for sport, o := range cfg.SourceOverrides {
		overrides[sport] = source.Endpoints{Primary: o.Primary, Fallback: o.Fallback}
	}
	resolver := source.NewResolver(source.ResolverConfig{
		Live:            live,
		Overrides:       overrides,
		DefaultBaseURL:  cfg.SourcesDefaultBaseURL,
		FallbackBaseURL: cfg.SourcesFallbackBaseURL,
		BareBaseURLs:    cfg.SourcesBareBaseURLs,
	})
	normalizer := source.NewNormalizer()
	breaker := resilience.CircuitBreakerConfig{
		Enabled:          cfg.SourcesCircuitEnabled,
		FailureThreshold: cfg.SourcesCircuitFailures,
		OpenTimeout:      cfg.SourcesCircuitOpenTime,
		HalfOpenMaxReq:   cfg.SourcesCircuitHalfOpen,
	}

	fetchers := make([]source.PickFetcher, 0, len(cfg.Sports))
	for _, sport := range cfg.Sports {
		var recovery source.RecoveryHook
		if cfg.RecoveryEnabled(sport) {
			recovery = source.NewEmbeddedJSONHook(client)
		}
		fetchers = append(fetchers, source.NewFetcher(source.SportConfig{
			Sport:          sport,
			Timeout:        cfg.TimeoutFor(sport),
			HealthTimeout:  cfg.SourcesHealthTimeout,
			CacheTTL:       cfg.SourcesCacheTTL,
			Location:       location,
			Recovery:       recovery,
			CircuitBreaker: breaker,
		}, source.Dependencies{
			Client:     client,
			Resolver:   resolver,
			Normalizer: normalizer,
			Metrics:    recorder,
			Logger:     logger,
		}))
	}

	return source.NewSet(fetchers...)
}
