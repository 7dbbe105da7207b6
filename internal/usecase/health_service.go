package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/source"
)

const defaultHealthWorkers = 4

type HealthReport struct {
	Healthy   int                   `json:"healthy"`
	Unhealthy int                   `json:"unhealthy"`
	Sources   []source.HealthStatus `json:"sources"`
}

// HealthService probes every source's health endpoint on a bounded pool.
type HealthService struct {
	sources SourceCatalog
	workers int
	logger  *logging.Logger
	now     func() time.Time
}

func NewHealthService(sources SourceCatalog, workers int, logger *logging.Logger) *HealthService {
	if workers < 1 {
		workers = defaultHealthWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthService{
		sources: sources,
		workers: workers,
		logger:  logger.Named("health"),
		now:     time.Now,
	}
}

// CheckAll probes the given sports, or every configured sport when none are
// named. Individual failures are reported in the statuses.
func (s *HealthService) CheckAll(ctx context.Context, sports []string) (HealthReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HealthService.CheckAll")
	defer span.End()

	targets := canonicalSports(sports)
	if len(targets) == 0 {
		targets = s.sources.Sports()
	}
	if len(targets) == 0 {
		return HealthReport{Sources: []source.HealthStatus{}}, nil
	}

	workerCount := s.workers
	if workerCount > len(targets) {
		workerCount = len(targets)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return HealthReport{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan source.HealthStatus, len(targets))
	var workers sync.WaitGroup
	for _, sport := range targets {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results <- s.check(ctx, sport)
		}); err != nil {
			workers.Done()
			return HealthReport{}, fmt.Errorf("submit health check to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	report := HealthReport{Sources: make([]source.HealthStatus, 0, len(targets))}
	for status := range results {
		if status.Healthy {
			report.Healthy++
		} else {
			report.Unhealthy++
		}
		report.Sources = append(report.Sources, status)
	}
	sort.Slice(report.Sources, func(i, j int) bool {
		return report.Sources[i].Sport < report.Sources[j].Sport
	})
	return report, nil
}

func (s *HealthService) check(ctx context.Context, sport string) source.HealthStatus {
	fetcher, ok := s.sources.Get(sport)
	if !ok {
		return source.HealthStatus{
			Sport:     sport,
			Status:    "unknown",
			Error:     fmt.Sprintf("no source configured for %s", sport),
			CheckedAt: s.now(),
		}
	}

	status, err := fetcher.CheckHealth(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "source health check failed", "sport", sport, "error", err)
		if status.Error == "" {
			status.Error = err.Error()
		}
		status.Healthy = false
	}
	if status.Sport == "" {
		status.Sport = sport
	}
	return status
}
