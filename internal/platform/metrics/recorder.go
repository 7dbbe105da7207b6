package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pickboard"

// Option customises a Recorder.
type Option func(*options)

type options struct {
	namespace string
	buckets   []float64
}

func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

func WithLatencyBuckets(buckets []float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// Recorder holds the acquisition and sync metrics. A nil *Recorder is a
// valid no-op recorder.
type Recorder struct {
	fetchAttempts    *prometheus.CounterVec
	fetchLatency     *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	aggregateRuns    *prometheus.CounterVec
	sourceFailures   *prometheus.CounterVec
	lockTransitions  *prometheus.CounterVec
	remoteSyncErrors *prometheus.CounterVec
	trackedPicks     prometheus.Gauge
}

// New registers every metric on reg.
func New(reg prometheus.Registerer, opts ...Option) *Recorder {
	o := options{namespace: namespace, buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}}
	for _, opt := range opts {
		opt(&o)
	}
	auto := promauto.With(reg)

	return &Recorder{
		fetchAttempts: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "source",
			Name:      "fetch_attempts_total",
			Help:      "Upstream fetch attempts by sport, tier and outcome.",
		}, []string{"sport", "tier", "outcome"}),
		fetchLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of upstream fetch attempts.",
			Buckets:   o.buckets,
		}, []string{"sport", "tier"}),
		cacheLookups: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "source",
			Name:      "cache_lookups_total",
			Help:      "Per-source cache lookups by result.",
		}, []string{"sport", "result"}),
		aggregateRuns: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "aggregator",
			Name:      "runs_total",
			Help:      "Aggregation cycles, labelled by whether demo data was substituted.",
		}, []string{"fallback_used"}),
		sourceFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "aggregator",
			Name:      "source_failures_total",
			Help:      "Per-sport failures recorded by the aggregator.",
		}, []string{"sport", "kind"}),
		lockTransitions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "tracker",
			Name:      "lock_transitions_total",
			Help:      "Lock and unlock transitions by outcome.",
		}, []string{"action", "outcome"}),
		remoteSyncErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "tracker",
			Name:      "remote_sync_failures_total",
			Help:      "Failed writes to the remote pick store.",
		}, []string{"operation"}),
		trackedPicks: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: "tracker",
			Name:      "tracked_picks",
			Help:      "Picks currently held in the working set.",
		}),
	}
}

func (r *Recorder) FetchAttempt(sport, tier, outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.fetchAttempts.WithLabelValues(sport, tier, outcome).Inc()
	r.fetchLatency.WithLabelValues(sport, tier).Observe(took.Seconds())
}

func (r *Recorder) CacheLookup(sport string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(sport, result).Inc()
}

func (r *Recorder) AggregateRun(fallbackUsed bool) {
	if r == nil {
		return
	}
	label := "false"
	if fallbackUsed {
		label = "true"
	}
	r.aggregateRuns.WithLabelValues(label).Inc()
}

func (r *Recorder) SourceFailure(sport, kind string) {
	if r == nil {
		return
	}
	r.sourceFailures.WithLabelValues(sport, kind).Inc()
}

func (r *Recorder) LockTransition(action string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.lockTransitions.WithLabelValues(action, outcome).Inc()
}

func (r *Recorder) RemoteSyncFailure(operation string) {
	if r == nil {
		return
	}
	r.remoteSyncErrors.WithLabelValues(operation).Inc()
}

func (r *Recorder) TrackedPicks(n int) {
	if r == nil {
		return
	}
	r.trackedPicks.Set(float64(n))
}
