package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	// Fresh registry so repeated test runs never collide
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	m := New()

	m.CacheHits.Inc()
	m.CacheHits.Inc()
	if got := testutil.ToFloat64(m.CacheHits); got != 2 {
		t.Errorf("Expected 2 cache hits, got %f", got)
	}

	m.LLMCostUSD.Add(0.005)
	if got := testutil.ToFloat64(m.LLMCostUSD); got != 0.005 {
		t.Errorf("Expected cost 0.005, got %f", got)
	}

	m.AnalysesTotal.WithLabelValues("ok", "en").Inc()
	m.AnalysesTotal.WithLabelValues("validation_error", "pt").Inc()
	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok", "en")); got != 1 {
		t.Errorf("Expected 1 ok/en analysis, got %f", got)
	}
}
