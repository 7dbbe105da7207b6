package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/riskibarqy/pickboard/internal/config"
	"github.com/riskibarqy/pickboard/internal/infrastructure/pickstore"
	"github.com/riskibarqy/pickboard/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/pickboard/internal/infrastructure/snapshot"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AppEnv:                config.EnvDev,
		ServiceName:           "pickboard-api",
		HTTPAddr:              ":0",
		Sports:                []string{"NBA", "NFL"},
		SourcesDefaultBaseURL: "http://127.0.0.1:1",
		SourcesTimeout:        time.Second,
		SourcesHealthTimeout:  time.Second,
		SourcesCacheTTL:       time.Minute,
		SourcesTimezone:       "America/New_York",
		PickStoreBackend:      config.BackendMemory,
		SnapshotBackend:       config.SnapshotFile,
		SnapshotPath:          filepath.Join(t.TempDir(), "snapshot.json"),
	}
}

func TestNew_WiresRouter(t *testing.T) {
	a, err := New(testConfig(t), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources/nba/last-source", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = ""
	_, err := New(cfg, logging.NewNop())
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.SnapshotBackend = "s3"
	_, err = New(cfg, logging.NewNop())
	require.ErrorContains(t, err, "unsupported snapshot backend")

	cfg = testConfig(t)
	cfg.PickStoreBackend = "sqlite"
	_, err = New(cfg, logging.NewNop())
	require.ErrorContains(t, err, "unsupported pick store backend")
}

func TestBuildStores(t *testing.T) {
	cfg := testConfig(t)

	repo, closeRepo, err := buildPickRepository(cfg, logging.NewNop())
	require.NoError(t, err)
	require.IsType(t, &memory.PickRepository{}, repo)
	require.NoError(t, closeRepo(context.Background()))

	cfg.PickStoreBackend = config.BackendHTTP
	cfg.PickStoreBaseURL = "http://picks.internal"
	repo, _, err = buildPickRepository(cfg, logging.NewNop())
	require.NoError(t, err)
	require.IsType(t, &pickstore.Client{}, repo)

	store, _, err := buildSnapshotStore(cfg)
	require.NoError(t, err)
	require.IsType(t, &snapshot.FileStore{}, store)

	cfg.SnapshotBackend = config.SnapshotMemory
	store, _, err = buildSnapshotStore(cfg)
	require.NoError(t, err)
	require.IsType(t, &snapshot.MemoryStore{}, store)
}
