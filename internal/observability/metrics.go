// Package observability defines the Prometheus metrics for the evaluation
// engine and its cache.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace is the global prefix for all metrics (flagon_...).
const namespace = "flagon"

// lowLatencyBuckets adds sub-5ms resolution; evaluation is expected to be a
// cache hit almost always, so the default buckets are too coarse.
var lowLatencyBuckets = []float64{.0005, .001, .002, .005, .010, .025, .050, .100, .500}

var (
	// EvaluationsTotal counts evaluations by toggle kind and outcome.
	// Metric: flagon_engine_evaluations_total
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "evaluations_total",
		Help:      "Total toggle evaluations by kind and result",
	}, []string{"kind", "result"})

	// EvaluationDuration measures the latency of a single evaluation.
	// Metric: flagon_engine_evaluation_seconds
	EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "evaluation_seconds",
		Help:      "Time taken to evaluate a single toggle",
		Buckets:   lowLatencyBuckets,
	}, []string{"kind"})

	// CacheHits counts decision cache hits by toggle kind.
	// Metric: flagon_cache_hits_total
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total decision cache hits",
	}, []string{"kind"})

	// CacheMisses counts decision cache misses by toggle kind. Cache errors
	// count here too, since the engine degrades them to misses.
	// Metric: flagon_cache_misses_total
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total decision cache misses, including degraded errors",
	}, []string{"kind"})

	// CacheErrors counts cache operations that failed outright.
	// Metric: flagon_cache_errors_total
	CacheErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "errors_total",
		Help:      "Total cache operations that returned an error",
	})

	// InvalidationsTotal counts cache evictions triggered by mutation events.
	// Metric: flagon_cache_invalidations_total
	InvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Total invalidation events applied, by toggle kind",
	}, []string{"kind"})

	// StoreFallbacks counts evaluations that fell back to universe defaults
	// because the definition store was unavailable.
	// Metric: flagon_engine_store_fallbacks_total
	StoreFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "store_fallbacks_total",
		Help:      "Total evaluations served from universe defaults due to store errors",
	})
)
