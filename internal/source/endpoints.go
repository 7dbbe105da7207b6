package source

import (
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

// Endpoints is the resolved primary/fallback pair for one sport.
type Endpoints struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback,omitempty"`
}

func (e Endpoints) trimmed() Endpoints {
	return Endpoints{
		Primary:  strings.TrimRight(strings.TrimSpace(e.Primary), "/"),
		Fallback: strings.TrimRight(strings.TrimSpace(e.Fallback), "/"),
	}
}

// LiveRegistry holds the endpoint table refreshed at runtime.
type LiveRegistry struct {
	mu       sync.RWMutex
	entries  map[string]Endpoints
	loadedAt time.Time
}

func NewLiveRegistry() *LiveRegistry {
	return &LiveRegistry{entries: map[string]Endpoints{}}
}

// Replace swaps the whole table. Keys are canonicalized.
func (r *LiveRegistry) Replace(entries map[string]Endpoints, at time.Time) {
	next := make(map[string]Endpoints, len(entries))
	for sport, endpoints := range entries {
		next[pick.NormalizeSport(sport)] = endpoints.trimmed()
	}

	r.mu.Lock()
	r.entries = next
	r.loadedAt = at
	r.mu.Unlock()
}

func (r *LiveRegistry) Lookup(sport string) (Endpoints, bool) {
	if r == nil {
		return Endpoints{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	endpoints, ok := r.entries[pick.NormalizeSport(sport)]
	return endpoints, ok
}

func (r *LiveRegistry) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

func (r *LiveRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// EndpointResolver is what a Fetcher asks on every fetch.
type EndpointResolver interface {
	Resolve(sport string) Endpoints
}

type ResolverConfig struct {
	Live            *LiveRegistry
	Overrides       map[string]Endpoints
	DefaultBaseURL  string
	FallbackBaseURL string
	// BareBaseURLs uses the default bases as they are. The listing path
	// already names the sport, so hosts that serve {base}/weekly-lineup/{sport}
	// directly set this to avoid {base}/{sport}/weekly-lineup/{sport}.
	BareBaseURLs bool
}

// Resolver layers the live registry over static overrides over the default
// base URL. Each field is resolved independently, so a registry entry that
// only names a primary still inherits the configured fallback.
type Resolver struct {
	live         *LiveRegistry
	overrides    map[string]Endpoints
	defaultBase  string
	fallbackBase string
	bare         bool
}

func NewResolver(cfg ResolverConfig) *Resolver {
	overrides := make(map[string]Endpoints, len(cfg.Overrides))
	for sport, endpoints := range cfg.Overrides {
		overrides[pick.NormalizeSport(sport)] = endpoints.trimmed()
	}
	return &Resolver{
		live:         cfg.Live,
		overrides:    overrides,
		defaultBase:  strings.TrimRight(strings.TrimSpace(cfg.DefaultBaseURL), "/"),
		fallbackBase: strings.TrimRight(strings.TrimSpace(cfg.FallbackBaseURL), "/"),
		bare:         cfg.BareBaseURLs,
	}
}

func (r *Resolver) Resolve(sport string) Endpoints {
	sport = pick.NormalizeSport(sport)
	live, _ := r.live.Lookup(sport)
	override := r.overrides[sport]

	return Endpoints{
		Primary:  firstNonEmpty(live.Primary, override.Primary, r.joinBase(r.defaultBase, sport)),
		Fallback: firstNonEmpty(live.Fallback, override.Fallback, r.joinBase(r.fallbackBase, sport)),
	}
}

func (r *Resolver) joinBase(base, sport string) string {
	if base == "" || sport == "" {
		return ""
	}
	if r.bare {
		return base
	}
	return base + "/" + pick.SportPath(sport)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
