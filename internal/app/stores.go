package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/pickboard/internal/config"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/infrastructure/pickstore"
	"github.com/riskibarqy/pickboard/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/pickboard/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/pickboard/internal/infrastructure/snapshot"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/platform/resilience"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type closeFunc = func(context.Context) error

func noopClose(context.Context) error { return nil }

func buildPickRepository(cfg config.Config, logger *logging.Logger) (pick.Repository, closeFunc, error) {
	switch cfg.PickStoreBackend {
	case config.BackendHTTP:
		client := pickstore.NewClient(&http.Client{
			Timeout:   cfg.PickStoreTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}, pickstore.Config{
			BaseURL: cfg.PickStoreBaseURL,
			Token:   cfg.PickStoreToken,
			Timeout: cfg.PickStoreTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.PickStoreCircuitEnabled,
				FailureThreshold: cfg.PickStoreCircuitFailures,
				OpenTimeout:      cfg.PickStoreCircuitOpenTime,
				HalfOpenMaxReq:   cfg.PickStoreCircuitHalfOpen,
			},
		}, logger)
		return client, noopClose, nil
	case config.BackendPostgres:
		db, err := openDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("pick store backend", "backend", cfg.PickStoreBackend, "database", dbNameFromURL(cfg.DBURL))
		return postgres.NewPickRepository(db), func(context.Context) error { return db.Close() }, nil
	case config.BackendMemory, "":
		return memory.NewPickRepository(nil), noopClose, nil
	default:
		return nil, nil, fmt.Errorf("unsupported pick store backend %q", cfg.PickStoreBackend)
	}
}

func buildSnapshotStore(cfg config.Config) (pick.SnapshotStore, closeFunc, error) {
	switch cfg.SnapshotBackend {
	case config.SnapshotRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return snapshot.NewRedisStore(client, cfg.SnapshotRedisKey, cfg.SnapshotTTL),
			func(context.Context) error { return client.Close() }, nil
	case config.SnapshotMemory:
		return snapshot.NewMemoryStore(), noopClose, nil
	case config.SnapshotFile, "":
		return snapshot.NewFileStore(cfg.SnapshotPath), noopClose, nil
	default:
		return nil, nil, fmt.Errorf("unsupported snapshot backend %q", cfg.SnapshotBackend)
	}
}
