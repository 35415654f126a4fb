// Package metrics exposes Prometheus instrumentation for the detection
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors, registered on the
// default registerer.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	Fallbacks        prometheus.Counter
	BudgetRejections prometheus.Counter
	LLMCostUSD       prometheus.Counter
	AnalysisDuration prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	return &Metrics{
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "detector_analyses_total",
			Help: "Completed analyses by status and language",
		}, []string{"status", "language"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "detector_cache_hits_total",
			Help: "Analysis results served from cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "detector_cache_misses_total",
			Help: "Analysis requests that missed the cache",
		}),
		Fallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "detector_fallbacks_total",
			Help: "Analyses completed on the statistical-only path",
		}),
		BudgetRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "detector_budget_rejections_total",
			Help: "LLM calls skipped because a cost budget disallowed them",
		}),
		LLMCostUSD: promauto.NewCounter(prometheus.CounterOpts{
			Name: "detector_llm_cost_usd_total",
			Help: "Cumulative estimated LLM spend in USD",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "detector_analysis_duration_seconds",
			Help:    "End-to-end analysis duration",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}
