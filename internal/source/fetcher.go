package source

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/platform/cache"
	"github.com/riskibarqy/pickboard/internal/platform/fetch"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/platform/metrics"
	"github.com/riskibarqy/pickboard/internal/platform/resilience"
)

const (
	DefaultTimezone      = "America/New_York"
	defaultFetchTimeout  = 30 * time.Second
	defaultHealthTimeout = 5 * time.Second

	// primary, fallback and recovery each get one timed request.
	chainHops = 3
)

// Getter is the slice of the timed fetch client the source layer needs.
type Getter interface {
	Get(ctx context.Context, url string, timeout time.Duration) (fetch.Response, error)
}

// PickFetcher is the per-sport acquisition contract.
type PickFetcher interface {
	Sport() string
	FetchPicks(ctx context.Context, dateKey string) (Payload, error)
	CheckHealth(ctx context.Context) (HealthStatus, error)
	ClearCache(dateKey string) error
	LastSource() (pick.Source, bool)
}

type SportConfig struct {
	Sport          string
	Timeout        time.Duration
	HealthTimeout  time.Duration
	CacheTTL       time.Duration
	Location       *time.Location
	Recovery       RecoveryHook
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Dependencies struct {
	Client     Getter
	Resolver   EndpointResolver
	Normalizer *Normalizer
	Metrics    *metrics.Recorder
	Logger     *logging.Logger
	Now        func() time.Time
}

// Payload is one normalized fetch result, as cached.
type Payload struct {
	Sport     string        `json:"sport"`
	DateKey   string        `json:"dateKey"`
	Picks     []pick.Pick   `json:"picks"`
	Source    pick.Source   `json:"source"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Latency   time.Duration `json:"-"`
}

type HealthStatus struct {
	Sport      string         `json:"sport"`
	Healthy    bool           `json:"healthy"`
	Status     string         `json:"status"`
	Endpoint   string         `json:"endpoint,omitempty"`
	Tier       pick.Tier      `json:"tier,omitempty"`
	StatusCode int            `json:"statusCode,omitempty"`
	LatencyMs  int64          `json:"latencyMs"`
	Detail     map[string]any `json:"detail,omitempty"`
	Error      string         `json:"error,omitempty"`
	CheckedAt  time.Time      `json:"checkedAt"`
}

// Fetcher acquires one sport's picks through primary, fallback and an
// optional recovery hook, caching normalized payloads per date key.
type Fetcher struct {
	sport         string
	timeout       time.Duration
	healthTimeout time.Duration
	location      *time.Location
	recovery      RecoveryHook

	client     Getter
	resolver   EndpointResolver
	normalizer *Normalizer
	metrics    *metrics.Recorder
	logger     *logging.Logger
	now        func() time.Time

	cache    *cache.Store[Payload]
	breakers map[pick.Tier]*resilience.CircuitBreaker

	mu      sync.RWMutex
	last    pick.Source
	hasLast bool
}

func NewFetcher(cfg SportConfig, deps Dependencies) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	healthTimeout := cfg.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	sport := pick.NormalizeSport(cfg.Sport)

	return &Fetcher{
		sport:         sport,
		timeout:       timeout,
		healthTimeout: healthTimeout,
		location:      location,
		recovery:      cfg.Recovery,
		client:        deps.Client,
		resolver:      deps.Resolver,
		normalizer:    normalizer,
		metrics:       deps.Metrics,
		logger:        logger.With("sport", sport),
		now:           now,
		cache:         cache.NewStore[Payload](cfg.CacheTTL).WithLoadTimeout(chainHops * timeout),
		breakers: map[pick.Tier]*resilience.CircuitBreaker{
			pick.TierPrimary:  resilience.NewFromConfig(cfg.CircuitBreaker),
			pick.TierFallback: resilience.NewFromConfig(cfg.CircuitBreaker),
		},
	}
}

func (f *Fetcher) Sport() string { return f.sport }

// FetchPicks returns the cached payload for dateKey when fresh, otherwise
// walks the endpoint chain once for all concurrent callers.
func (f *Fetcher) FetchPicks(ctx context.Context, dateKey string) (Payload, error) {
	key, err := NormalizeDateKey(dateKey, f.now(), f.location)
	if err != nil {
		return Payload{}, err
	}

	payload, hit, err := f.cache.GetOrLoad(ctx, key, func(ctx context.Context) (Payload, error) {
		return f.fetchChain(ctx, key)
	})
	f.metrics.CacheLookup(f.sport, hit)
	if err != nil {
		return Payload{}, err
	}

	payload.Picks = slices.Clone(payload.Picks)
	return payload, nil
}

func (f *Fetcher) fetchChain(ctx context.Context, dateKey string) (Payload, error) {
	endpoints := f.resolver.Resolve(f.sport)
	failure := &FetchError{Sport: f.sport, DateKey: dateKey}

	hops := []struct {
		tier pick.Tier
		base string
	}{
		{tier: pick.TierPrimary, base: endpoints.Primary},
		{tier: pick.TierFallback, base: endpoints.Fallback},
	}
	for _, hop := range hops {
		if hop.base == "" {
			continue
		}
		target := f.listingURL(hop.base, dateKey)
		raw, err := f.get(ctx, hop.tier, target)
		if err == nil {
			return f.decode(raw, dateKey, pick.Source{Sport: f.sport, Endpoint: target, Tier: hop.tier}, failure)
		}

		failure.Attempts = append(failure.Attempts, Attempt{Tier: hop.tier, URL: target, Err: err})
		f.logger.WarnContext(ctx, "pick source attempt failed", "tier", hop.tier, "url", target, "error", err)
		if !canFallThrough(err) {
			return Payload{}, failure
		}
	}

	if len(failure.Attempts) == 0 {
		failure.Attempts = append(failure.Attempts, Attempt{Tier: pick.TierPrimary, Err: ErrNoEndpoint})
		return Payload{}, failure
	}

	if f.recovery != nil {
		started := f.now()
		raw, target, err := f.recovery.Recover(ctx, RecoveryRequest{
			Sport:     f.sport,
			SportPath: pick.SportPath(f.sport),
			DateKey:   dateKey,
			Endpoints: endpoints,
			Timeout:   f.timeout,
		})
		f.metrics.FetchAttempt(f.sport, string(pick.TierRecovery), outcomeOf(err), f.now().Sub(started))
		if err == nil {
			f.logger.InfoContext(ctx, "pick source recovered", "hook", f.recovery.Name(), "url", target)
			return f.decode(raw, dateKey, pick.Source{Sport: f.sport, Endpoint: target, Tier: pick.TierRecovery}, failure)
		}
		failure.Attempts = append(failure.Attempts, Attempt{Tier: pick.TierRecovery, URL: target, Err: err})
	}

	return Payload{}, failure
}

func (f *Fetcher) get(ctx context.Context, tier pick.Tier, target string) ([]byte, error) {
	breaker := f.breakers[tier]
	if err := breaker.Allow(); err != nil {
		f.metrics.FetchAttempt(f.sport, string(tier), KindCircuitOpen, 0)
		return nil, crerr.Wrapf(err, "%s endpoint", tier)
	}

	resp, err := f.client.Get(ctx, target, f.timeout)
	if err == nil {
		err = resp.Err()
	}
	breaker.Record(err != nil && countsAgainstBreaker(err))
	f.metrics.FetchAttempt(f.sport, string(tier), outcomeOf(err), resp.Latency)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// decode normalizes a successful hop. A parse failure ends the chain.
func (f *Fetcher) decode(raw []byte, dateKey string, src pick.Source, failure *FetchError) (Payload, error) {
	picks, err := f.normalizer.Normalize(raw, dateKey, src)
	if err != nil {
		failure.Attempts = append(failure.Attempts, Attempt{Tier: src.Tier, URL: src.Endpoint, Err: err})
		return Payload{}, failure
	}

	f.mu.Lock()
	f.last = src
	f.hasLast = true
	f.mu.Unlock()

	return Payload{
		Sport:     f.sport,
		DateKey:   dateKey,
		Picks:     picks,
		Source:    src,
		FetchedAt: f.now(),
	}, nil
}

func (f *Fetcher) listingURL(base, dateKey string) string {
	return base + "/weekly-lineup/" + pick.SportPath(f.sport) + "?date=" + url.QueryEscape(dateKey)
}

// ClearCache drops one date's payload, or every payload when dateKey is "".
func (f *Fetcher) ClearCache(dateKey string) error {
	if strings.TrimSpace(dateKey) == "" {
		f.cache.Clear()
		return nil
	}
	key, err := NormalizeDateKey(dateKey, f.now(), f.location)
	if err != nil {
		return err
	}
	f.cache.Delete(key)
	return nil
}

func (f *Fetcher) LastSource() (pick.Source, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last, f.hasLast
}

// CheckHealth probes {primary}/health, then {fallback}/health.
func (f *Fetcher) CheckHealth(ctx context.Context) (HealthStatus, error) {
	endpoints := f.resolver.Resolve(f.sport)
	status := HealthStatus{Sport: f.sport, Status: "unavailable", CheckedAt: f.now()}

	var lastErr error = ErrNoEndpoint
	for _, hop := range []struct {
		tier pick.Tier
		base string
	}{
		{tier: pick.TierPrimary, base: endpoints.Primary},
		{tier: pick.TierFallback, base: endpoints.Fallback},
	} {
		if hop.base == "" {
			continue
		}
		target := hop.base + "/health"
		resp, err := f.client.Get(ctx, target, f.healthTimeout)
		if err == nil {
			err = resp.Err()
		}

		status.Endpoint = target
		status.Tier = hop.tier
		status.StatusCode = resp.StatusCode
		status.LatencyMs = resp.Latency.Milliseconds()
		if err != nil {
			lastErr = err
			continue
		}

		status.Healthy = true
		status.Status = "ok"
		status.Error = ""
		var detail map[string]any
		if sonic.Unmarshal(resp.Body, &detail) == nil {
			status.Detail = detail
			if s, ok := detail["status"].(string); ok && s != "" {
				status.Status = s
			}
		}
		return status, nil
	}

	status.Error = lastErr.Error()
	return status, crerr.Wrapf(lastErr, "%s health", f.sport)
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return Kind(err)
}

// countsAgainstBreaker skips client-side statuses that a healthy upstream
// also returns, such as 404 for a date with no lineup.
func countsAgainstBreaker(err error) bool {
	if errors.Is(err, fetch.ErrUpstream) {
		code := fetch.StatusCode(err)
		return code >= 500 || code == 408 || code == 429
	}
	return true
}
