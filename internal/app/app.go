package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/pickboard/internal/config"
	"github.com/riskibarqy/pickboard/internal/interfaces/httpapi"
	"github.com/riskibarqy/pickboard/internal/platform/fetch"
	"github.com/riskibarqy/pickboard/internal/platform/id"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/platform/metrics"
	"github.com/riskibarqy/pickboard/internal/source"
	"github.com/riskibarqy/pickboard/internal/usecase"
)

const eventLogBuffer = 64

// App owns every long-lived component of the pick board service.
type App struct {
	Server    *http.Server
	Dashboard *usecase.DashboardService

	cfg      config.Config
	logger   *logging.Logger
	registry *source.RegistryLoader
	events   *usecase.Broadcaster
	closers  []func(context.Context) error
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{cfg: cfg, logger: logger}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	client := fetch.NewClient(fetch.ClientConfig{
		Name:           cfg.ServiceName,
		DefaultTimeout: cfg.SourcesTimeout,
		Logger:         logger,
	})

	live := source.NewLiveRegistry()
	a.registry = source.NewRegistryLoader(source.RegistryLoaderConfig{
		URL:     cfg.RegistryURL,
		Timeout: cfg.RegistryTimeout,
		Client:  client,
		Live:    live,
		Logger:  logger,
	})

	location, err := time.LoadLocation(cfg.SourcesTimezone)
	if err != nil {
		return nil, fmt.Errorf("load sources timezone: %w", err)
	}
	sources := buildSources(cfg, client, live, location, recorder, logger)

	picks, closePicks, err := buildPickRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closePicks)

	snapshots, closeSnapshots, err := buildSnapshotStore(cfg)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	a.closers = append(a.closers, closeSnapshots)

	a.events = usecase.NewBroadcaster(id.NewUUIDGenerator(), logger)
	aggregator := usecase.NewAggregator(sources, usecase.AggregatorConfig{
		MaxConcurrency: cfg.AggregatorMaxConcurrency,
		Location:       location,
	}, recorder, logger)
	tracker := usecase.NewTracker(picks, snapshots, a.events, recorder, logger)
	a.Dashboard = usecase.NewDashboardService(aggregator, tracker, snapshots, sources, a.events, logger)
	health := usecase.NewHealthService(sources, cfg.HealthWorkers, logger)

	handler := httpapi.NewHandler(a.Dashboard, health, logger)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	router := httpapi.NewRouter(handler, metricsHandler, logger, cfg.CORSAllowedOrigins)

	a.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return a, nil
}

// Start loads the endpoint registry, hydrates the tracker from the last
// snapshot and starts the background loops. Loops stop when ctx is done.
func (a *App) Start(ctx context.Context) {
	if err := a.registry.Load(ctx); err != nil {
		a.logger.WarnContext(ctx, "endpoint registry unavailable, using static endpoints", "error", err)
	}
	if err := a.Dashboard.Bootstrap(ctx); err != nil {
		a.logger.WarnContext(ctx, "bootstrap from snapshot failed", "error", err)
	}

	go a.registry.Watch(ctx, a.cfg.RegistryRefreshInterval)

	events, cancel := a.events.Subscribe(eventLogBuffer)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	go a.logEvents(events)
}

func (a *App) logEvents(events <-chan usecase.Event) {
	logger := a.logger.Named("events")
	for ev := range events {
		switch ev.Type {
		case usecase.EventSyncFailed, usecase.EventSnapshotFailed:
			logger.Warn("pick event", "id", ev.ID, "type", ev.Type, "pick_id", ev.PickID)
		default:
			logger.Debug("pick event", "id", ev.ID, "type", ev.Type, "pick_id", ev.PickID)
		}
	}
}

// Close releases the stores in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
