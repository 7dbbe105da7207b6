package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/platform/fetch"
)

const lineupBody = `{"picks":[
	{"game_date":"2025-12-25","away_team":"Lakers","home_team":"Celtics","pick_type":"spread","pick_team":"Lakers","line":"+4.5","odds":-110,"edge":4.2,"fire_rating":"strong"},
	{"game_date":"2025-12-25","away_team":"Knicks","home_team":"Spurs","market":"total","side":"over","line":"227.5","price":"-105","confidence":"72%"}
]}`

var christmas = time.Date(2025, 12, 25, 15, 0, 0, 0, time.UTC)

type upstream struct {
	srv   *httptest.Server
	calls atomic.Int64
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestFetcher(primary, fallback string, mutate func(*SportConfig)) *Fetcher {
	cfg := SportConfig{Sport: "nba", Timeout: time.Second, CacheTTL: time.Minute}
	if mutate != nil {
		mutate(&cfg)
	}
	resolver := NewResolver(ResolverConfig{
		Overrides: map[string]Endpoints{"NBA": {Primary: primary, Fallback: fallback}},
	})
	return NewFetcher(cfg, Dependencies{
		Client:   fetch.NewClient(fetch.ClientConfig{}),
		Resolver: resolver,
		Now:      func() time.Time { return christmas },
	})
}

func TestFetcher_PrimarySuccess(t *testing.T) {
	t.Parallel()

	seen := make(chan string, 1)
	primary := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		seen <- r.URL.RequestURI()
		respond(http.StatusOK, lineupBody)(w, r)
	})
	fetcher := newTestFetcher(primary.srv.URL, "", nil)

	payload, err := fetcher.FetchPicks(context.Background(), "2025-12-25")
	if err != nil {
		t.Fatalf("fetch picks: %v", err)
	}
	if got := <-seen; got != "/weekly-lineup/nba?date=2025-12-25" {
		t.Fatalf("unexpected request %s", got)
	}
	if len(payload.Picks) != 2 {
		t.Fatalf("expected 2 picks, got %d", len(payload.Picks))
	}
	if payload.Source.Tier != pick.TierPrimary {
		t.Fatalf("expected primary tier, got %s", payload.Source.Tier)
	}

	first := payload.Picks[0]
	if first.ID != "nba_2025-12-25_lakers_celtics_spread_fg_lakers_4-5" {
		t.Fatalf("unexpected id %q", first.ID)
	}
	if first.FireRating != 4 || first.Odds != -110 || first.Edge != 4.2 {
		t.Fatalf("unexpected volatile fields %+v", first)
	}

	total := payload.Picks[1]
	if total.PickType != pick.TypeTotal || total.PickDirection != "over" || total.Odds != -105 || total.FireRating != 4 {
		t.Fatalf("unexpected total pick %+v", total)
	}

	last, ok := fetcher.LastSource()
	if !ok || last.Tier != pick.TierPrimary || !strings.HasPrefix(last.Endpoint, primary.srv.URL) {
		t.Fatalf("unexpected last source %+v", last)
	}
}

func TestFetcher_FallsBackOnUpstreamError(t *testing.T) {
	t.Parallel()

	primary := newUpstream(t, respond(http.StatusBadGateway, `{"error":"down"}`))
	fallback := newUpstream(t, respond(http.StatusOK, lineupBody))
	fetcher := newTestFetcher(primary.srv.URL, fallback.srv.URL, nil)

	payload, err := fetcher.FetchPicks(context.Background(), "today")
	if err != nil {
		t.Fatalf("fetch picks: %v", err)
	}
	if payload.Source.Tier != pick.TierFallback {
		t.Fatalf("expected fallback tier, got %s", payload.Source.Tier)
	}
	for _, p := range payload.Picks {
		if p.Source.Tier != pick.TierFallback {
			t.Fatalf("pick %s carries tier %s", p.ID, p.Source.Tier)
		}
	}
}

func TestFetcher_FallsBackOnTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	primary := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		respond(http.StatusOK, lineupBody)(w, r)
	})
	defer close(release)
	fallback := newUpstream(t, respond(http.StatusOK, lineupBody))
	fetcher := newTestFetcher(primary.srv.URL, fallback.srv.URL, func(cfg *SportConfig) {
		cfg.Timeout = 50 * time.Millisecond
	})

	payload, err := fetcher.FetchPicks(context.Background(), "2025-12-25")
	if err != nil {
		t.Fatalf("fetch picks: %v", err)
	}
	if payload.Source.Tier != pick.TierFallback {
		t.Fatalf("expected fallback tier, got %s", payload.Source.Tier)
	}
}

func TestFetcher_ParseErrorIsTerminal(t *testing.T) {
	t.Parallel()

	primary := newUpstream(t, respond(http.StatusOK, `<html>maintenance</html>`))
	fallback := newUpstream(t, respond(http.StatusOK, lineupBody))
	fetcher := newTestFetcher(primary.srv.URL, fallback.srv.URL, nil)

	_, err := fetcher.FetchPicks(context.Background(), "2025-12-25")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Kind() != KindParse {
		t.Fatalf("expected parse FetchError, got %v", err)
	}
	if fallback.calls.Load() != 0 {
		t.Fatalf("fallback must not be called after a parse error")
	}
}

func TestFetcher_AllAttemptsFailAggregated(t *testing.T) {
	t.Parallel()

	primary := newUpstream(t, respond(http.StatusInternalServerError, `oops`))
	fallback := newUpstream(t, respond(http.StatusServiceUnavailable, `busy`))
	fetcher := newTestFetcher(primary.srv.URL, fallback.srv.URL, nil)

	_, err := fetcher.FetchPicks(context.Background(), "2025-12-25")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if len(fetchErr.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fetchErr.Attempts))
	}
	if fetchErr.Sport != pick.SportNBA || fetchErr.DateKey != "2025-12-25" {
		t.Fatalf("unexpected error context %+v", fetchErr)
	}
	if fetchErr.Kind() != KindUpstream || fetch.StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("unexpected terminal error %v", err)
	}
	if _, ok := fetcher.LastSource(); ok {
		t.Fatalf("failed fetch must not record a last source")
	}
}

func TestFetcher_RecoveryHookRunsAfterNetworkFailures(t *testing.T) {
	t.Parallel()

	primary := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/report") {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><script>window.__DATA__ = ` + lineupBody + `;</script></html>`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})
	fetcher := newTestFetcher(primary.srv.URL, "", func(cfg *SportConfig) {
		cfg.Recovery = NewEmbeddedJSONHook(fetch.NewClient(fetch.ClientConfig{}))
	})

	payload, err := fetcher.FetchPicks(context.Background(), "2025-12-25")
	if err != nil {
		t.Fatalf("fetch picks: %v", err)
	}
	if payload.Source.Tier != pick.TierRecovery || len(payload.Picks) != 2 {
		t.Fatalf("unexpected recovered payload %+v", payload.Source)
	}
}

func TestFetcher_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	primary := newUpstream(t, respond(http.StatusOK, lineupBody))
	fetcher := newTestFetcher(primary.srv.URL, "", nil)

	first, err := fetcher.FetchPicks(context.Background(), "2025-12-25")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := fetcher.FetchPicks(context.Background(), "20251225")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if primary.calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", primary.calls.Load())
	}
	if len(first.Picks) != len(second.Picks) || first.Picks[0] != second.Picks[0] {
		t.Fatalf("cached payload differs from the original")
	}

	if err := fetcher.ClearCache("2025-12-25"); err != nil {
		t.Fatalf("clear cache: %v", err)
	}
	if _, err := fetcher.FetchPicks(context.Background(), "2025-12-25"); err != nil {
		t.Fatalf("third fetch: %v", err)
	}
	if primary.calls.Load() != 2 {
		t.Fatalf("expected refetch after clear, got %d calls", primary.calls.Load())
	}
}

func TestFetcher_ConcurrentCallersShareOneRequest(t *testing.T) {
	t.Parallel()

	primary := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		respond(http.StatusOK, lineupBody)(w, r)
	})
	fetcher := newTestFetcher(primary.srv.URL, "", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fetcher.FetchPicks(context.Background(), "2025-12-25"); err != nil {
				t.Errorf("fetch picks: %v", err)
			}
		}()
	}
	wg.Wait()

	if primary.calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", primary.calls.Load())
	}
}

func TestFetcher_InvalidDateKey(t *testing.T) {
	t.Parallel()

	fetcher := newTestFetcher("http://127.0.0.1:1", "", nil)
	if _, err := fetcher.FetchPicks(context.Background(), "next week"); !errors.Is(err, ErrInvalidDateKey) {
		t.Fatalf("expected ErrInvalidDateKey, got %v", err)
	}
	if err := fetcher.ClearCache("nope"); !errors.Is(err, ErrInvalidDateKey) {
		t.Fatalf("expected ErrInvalidDateKey from ClearCache, got %v", err)
	}
}

func TestFetcher_CheckHealthFallsBack(t *testing.T) {
	t.Parallel()

	primary := newUpstream(t, respond(http.StatusServiceUnavailable, `{}`))
	fallback := newUpstream(t, respond(http.StatusOK, `{"status":"degraded","version":"1.2"}`))
	fetcher := newTestFetcher(primary.srv.URL, fallback.srv.URL, nil)

	status, err := fetcher.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("check health: %v", err)
	}
	if !status.Healthy || status.Tier != pick.TierFallback || status.Status != "degraded" {
		t.Fatalf("unexpected health %+v", status)
	}
	if status.Endpoint != fallback.srv.URL+"/health" {
		t.Fatalf("unexpected endpoint %s", status.Endpoint)
	}
}

func TestFetcher_CheckHealthReportsFailure(t *testing.T) {
	t.Parallel()

	primary := newUpstream(t, respond(http.StatusInternalServerError, `{}`))
	fetcher := newTestFetcher(primary.srv.URL, "", nil)

	status, err := fetcher.CheckHealth(context.Background())
	if err == nil || status.Healthy {
		t.Fatalf("expected unhealthy status, got %+v", status)
	}
	if status.StatusCode != http.StatusInternalServerError || status.Error == "" {
		t.Fatalf("unexpected failure detail %+v", status)
	}
}

func TestFetcher_DefaultBaseURLShapes(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		bare bool
		want string
	}{
		"sport appended": {bare: false, want: "/nba/weekly-lineup/nba?date=2025-12-25"},
		"bare base":      {bare: true, want: "/weekly-lineup/nba?date=2025-12-25"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			seen := make(chan string, 1)
			upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				seen <- r.URL.RequestURI()
				respond(http.StatusOK, lineupBody)(w, r)
			})
			fetcher := NewFetcher(SportConfig{Sport: "nba", Timeout: time.Second, CacheTTL: time.Minute}, Dependencies{
				Client:   fetch.NewClient(fetch.ClientConfig{}),
				Resolver: NewResolver(ResolverConfig{DefaultBaseURL: upstream.srv.URL, BareBaseURLs: tc.bare}),
				Now:      func() time.Time { return christmas },
			})

			if _, err := fetcher.FetchPicks(context.Background(), "2025-12-25"); err != nil {
				t.Fatalf("fetch picks: %v", err)
			}
			if got := <-seen; got != tc.want {
				t.Fatalf("request = %s, want %s", got, tc.want)
			}
		})
	}
}
