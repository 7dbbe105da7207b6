package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/pickboard/internal/infrastructure/snapshot"
	"github.com/riskibarqy/pickboard/internal/platform/id"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/source"
	"github.com/riskibarqy/pickboard/internal/usecase"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	sport string
	picks []pick.Pick
	err   error
}

func (f *fakeFetcher) Sport() string { return f.sport }

func (f *fakeFetcher) FetchPicks(_ context.Context, dateKey string) (source.Payload, error) {
	if f.err != nil {
		return source.Payload{}, f.err
	}
	return source.Payload{Sport: f.sport, DateKey: dateKey, Picks: f.picks}, nil
}

func (f *fakeFetcher) CheckHealth(_ context.Context) (source.HealthStatus, error) {
	return source.HealthStatus{Sport: f.sport, Healthy: f.err == nil, Status: "ok"}, nil
}

func (f *fakeFetcher) ClearCache(string) error { return nil }

func (f *fakeFetcher) LastSource() (pick.Source, bool) {
	if len(f.picks) == 0 {
		return pick.Source{}, false
	}
	return f.picks[0].Source, true
}

func samplePick() pick.Pick {
	p := pick.Pick{
		Sport:      "NBA",
		GameDate:   "2025-12-25",
		AwayTeam:   "Lakers",
		HomeTeam:   "Warriors",
		Segment:    pick.SegmentFullGame,
		PickType:   pick.TypeSpread,
		PickTeam:   "Lakers",
		Line:       "-4.5",
		Odds:       pick.DefaultOdds,
		Edge:       3.2,
		FireRating: 4,
		Source:     pick.Source{Sport: "NBA", Endpoint: "http://primary/nba", Tier: pick.TierPrimary},
	}
	p.ID = pick.ComputeID(p)
	return p
}

func newTestRouter(t *testing.T, fetchers ...source.PickFetcher) http.Handler {
	t.Helper()

	set := source.NewSet(fetchers...)
	store := snapshot.NewMemoryStore()
	events := usecase.NewBroadcaster(&id.SequenceGenerator{Prefix: "evt"}, nil)
	aggregator := usecase.NewAggregator(set, usecase.AggregatorConfig{Location: time.UTC}, nil, nil)
	tracker := usecase.NewTracker(memory.NewPickRepository(nil), store, events, nil, nil)
	dashboard := usecase.NewDashboardService(aggregator, tracker, store, set, events, nil)
	health := usecase.NewHealthService(set, 2, nil)

	return NewRouter(NewHandler(dashboard, health, logging.NewNop()), nil, logging.NewNop(), []string{"*"})
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestHandler_ListPicksThenLock(t *testing.T) {
	p := samplePick()
	router := newTestRouter(t, &fakeFetcher{sport: "NBA", picks: []pick.Pick{p}})

	status, body := doRequest(t, router, http.MethodGet, "/v1/picks?sports=nba&date=2025-12-25", "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	require.Equal(t, false, data["fallbackUsed"])
	require.Len(t, data["picks"], 1)

	status, body = doRequest(t, router, http.MethodPut, "/v1/picks/"+p.ID+"/lock", `{"locked":true}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["data"].(map[string]any)["locked"])

	status, body = doRequest(t, router, http.MethodGet, "/v1/picks/tracked?locked=true", "")
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, body["data"].(map[string]any)["count"])

	status, body = doRequest(t, router, http.MethodGet, "/v1/picks/snapshot", "")
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, body["data"].(map[string]any)["count"])
}

func TestHandler_ListPicksFallsBackToDemo(t *testing.T) {
	router := newTestRouter(t, &fakeFetcher{sport: "NBA", err: source.ErrNoEndpoint})

	status, body := doRequest(t, router, http.MethodGet, "/v1/picks?date=2025-12-25", "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	require.Equal(t, true, data["fallbackUsed"])
	require.NotEmpty(t, data["picks"])
	require.Len(t, data["errors"], 1)
}

func TestHandler_Errors(t *testing.T) {
	router := newTestRouter(t, &fakeFetcher{sport: "NBA", picks: []pick.Pick{samplePick()}})

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{name: "invalid date", method: http.MethodGet, target: "/v1/picks?date=someday", want: http.StatusBadRequest},
		{name: "lock unknown pick", method: http.MethodPut, target: "/v1/picks/nope/lock", body: `{"locked":true}`, want: http.StatusNotFound},
		{name: "lock missing field", method: http.MethodPut, target: "/v1/picks/nope/lock", body: `{}`, want: http.StatusBadRequest},
		{name: "lock unknown field", method: http.MethodPut, target: "/v1/picks/nope/lock", body: `{"locked":true,"x":1}`, want: http.StatusBadRequest},
		{name: "lock empty body", method: http.MethodPut, target: "/v1/picks/nope/lock", want: http.StatusBadRequest},
		{name: "tracked bad filter", method: http.MethodGet, target: "/v1/picks/tracked?locked=maybe", want: http.StatusBadRequest},
		{name: "snapshot before refresh", method: http.MethodGet, target: "/v1/picks/snapshot", want: http.StatusNotFound},
		{name: "unknown sport source", method: http.MethodGet, target: "/v1/sources/mlb/last-source", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, router, tt.method, tt.target, tt.body)
			require.Equal(t, tt.want, status)
			require.Contains(t, body, "error")
		})
	}
}

func TestHandler_Sources(t *testing.T) {
	router := newTestRouter(t, &fakeFetcher{sport: "NBA", picks: []pick.Pick{samplePick()}})

	status, body := doRequest(t, router, http.MethodGet, "/v1/sources/health", "")
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, body["data"].(map[string]any)["healthy"])

	status, body = doRequest(t, router, http.MethodGet, "/v1/sources/nba/last-source", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "primary", body["data"].(map[string]any)["tier"])

	status, body = doRequest(t, router, http.MethodDelete, "/v1/sources/nba/cache?date=2025-12-25", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["data"].(map[string]any)["cleared"])
}

func TestHandler_Healthz(t *testing.T) {
	router := newTestRouter(t)

	status, body := doRequest(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["data"].(map[string]any)["status"])
}
