package detector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/truecheckia/detector/internal/cache"
	"github.com/truecheckia/detector/internal/config"
	"github.com/truecheckia/detector/internal/cost"
	"github.com/truecheckia/detector/internal/llm"
	"github.com/truecheckia/detector/internal/models"
)

// mockLLM implements LLMAnalyzer for testing
type mockLLM struct {
	mu      sync.Mutex
	calls   int
	verdict *llm.Verdict
	err     error
	delay   time.Duration
}

func (m *mockLLM) Analyze(ctx context.Context, text string, lang models.Language) (*llm.Verdict, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	v := *m.verdict
	return &v, nil
}

func (m *mockLLM) EstimateCostUSD(text string) float64 {
	return 0.001
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		MinTextLength:             10,
		MaxTextLength:             15000,
		LLMWeight:                 0.7,
		StatisticalWeight:         0.3,
		AIScoreThreshold:          68,
		HighConfidenceThreshold:   75,
		MediumConfidenceThreshold: 50,
		ConfidenceDelta:           15,
	}
}

func testCostConfig() config.CostConfig {
	return config.CostConfig{
		DailyAlertUSD:     10,
		DailyEmergencyUSD: 25,
		Free:              config.TierLimits{MaxRequestsPerDay: 100, MaxCostPerDayUSD: 1},
		Pro:               config.TierLimits{MaxRequestsPerDay: 500, MaxCostPerDayUSD: 2.50},
		Enterprise:        config.TierLimits{MaxRequestsPerDay: 10000, MaxCostPerDayUSD: 25},
	}
}

func newTestDetector(t *testing.T, llmAnalyzer LLMAnalyzer) (*Detector, *cache.Cache, *cost.Tracker) {
	t.Helper()

	c := cache.New(100, time.Minute, time.Minute)
	costs := cost.NewTracker(testCostConfig(), nil)

	d, err := New(testDetectionConfig(), Deps{
		Cache: c,
		Costs: costs,
		LLM:   llmAnalyzer,
	})
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}
	return d, c, costs
}

func sampleRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		Text:     "This is a reasonably long piece of text that we want to analyze for authorship.",
		Language: models.LanguageEN,
		UserID:   "user-1",
		Plan:     models.PlanFree,
	}
}

func TestNewRejectsBadWeights(t *testing.T) {
	cfg := testDetectionConfig()
	cfg.LLMWeight = 0.5

	_, err := New(cfg, Deps{
		Cache: cache.New(10, time.Minute, time.Minute),
		Costs: cost.NewTracker(testCostConfig(), nil),
	})
	if err == nil {
		t.Error("Expected error for weights not summing to 1.0")
	}
}

func TestAnalyzeTextWithLLM(t *testing.T) {
	mock := &mockLLM{verdict: &llm.Verdict{
		AIScore:          90,
		Confidence:       models.ConfidenceHigh,
		Explanation:      "Clearly generated.",
		TokensUsed:       500,
		EstimatedCostUSD: 0.0001,
	}}
	d, _, costs := newTestDetector(t, mock)

	res, err := d.AnalyzeText(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.AIScore < 0 || res.AIScore > 100 {
		t.Errorf("Score out of bounds: %d", res.AIScore)
	}
	if !res.IsAIGenerated {
		t.Errorf("Expected flagged result at combined score %d", res.AIScore)
	}
	if res.UsingFallback {
		t.Error("Expected LLM path, not fallback")
	}
	if res.Cached {
		t.Error("Expected first analysis to not be cached")
	}
	if mock.callCount() != 1 {
		t.Errorf("Expected 1 LLM call, got %d", mock.callCount())
	}
	if costs.DailyTotal() == 0 {
		t.Error("Expected cost to be recorded after LLM success")
	}
}

func TestAnalyzeTextCacheHit(t *testing.T) {
	mock := &mockLLM{verdict: &llm.Verdict{
		AIScore:     70,
		Confidence:  models.ConfidenceMedium,
		Explanation: "Elevated score.",
	}}
	d, _, _ := newTestDetector(t, mock)

	req := sampleRequest()
	first, err := d.AnalyzeText(context.Background(), req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	second, err := d.AnalyzeText(context.Background(), req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !second.Cached {
		t.Error("Expected second analysis to be served from cache")
	}
	if second.AIScore != first.AIScore {
		t.Errorf("Expected identical scores, got %d then %d", first.AIScore, second.AIScore)
	}
	if mock.callCount() != 1 {
		t.Errorf("Expected 1 LLM call total, got %d", mock.callCount())
	}
}

func TestAnalyzeTextLLMFailureFallsBack(t *testing.T) {
	mock := &mockLLM{err: &llm.ProviderError{Op: "generate", Err: errors.New("connection refused")}}
	d, c, costs := newTestDetector(t, mock)

	res, err := d.AnalyzeText(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Expected graceful fallback, got error: %v", err)
	}

	if !res.UsingFallback {
		t.Error("Expected fallback result after provider failure")
	}
	if res.Confidence != models.ConfidenceLow {
		t.Errorf("Expected LOW confidence in fallback, got %s", res.Confidence)
	}
	if costs.DailyTotal() != 0 {
		t.Error("Expected no cost recorded for a failed call")
	}

	// Provider must now be marked unhealthy
	if ok, known := c.ProviderHealth(); !known || ok {
		t.Errorf("Expected known-unhealthy provider, got ok=%v known=%v", ok, known)
	}
}

func TestAnalyzeTextHealthGateSkipsLLM(t *testing.T) {
	mock := &mockLLM{err: errors.New("connection refused")}
	d, _, _ := newTestDetector(t, mock)

	first := sampleRequest()
	if _, err := d.AnalyzeText(context.Background(), first); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mock.callCount() != 1 {
		t.Fatalf("Expected 1 call, got %d", mock.callCount())
	}

	// Different text, provider known unhealthy: LLM path must be skipped
	second := first
	second.Text = "A different text entirely, long enough to pass validation checks here."
	res, err := d.AnalyzeText(context.Background(), second)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.UsingFallback {
		t.Error("Expected fallback while provider is unhealthy")
	}
	if mock.callCount() != 1 {
		t.Errorf("Expected LLM to be skipped, got %d calls", mock.callCount())
	}
}

func TestAnalyzeTextValidation(t *testing.T) {
	mock := &mockLLM{verdict: &llm.Verdict{AIScore: 50, Confidence: models.ConfidenceLow, Explanation: "x"}}
	d, c, costs := newTestDetector(t, mock)

	tests := []struct {
		name string
		req  models.AnalysisRequest
	}{
		{"too short", models.AnalysisRequest{Text: "short", Language: models.LanguageEN}},
		{"too long", models.AnalysisRequest{Text: strings.Repeat("a", 15001), Language: models.LanguageEN}},
		{"bad language", models.AnalysisRequest{Text: "long enough text for analysis here", Language: "fr"}},
		{"empty language", models.AnalysisRequest{Text: "long enough text for analysis here", Language: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.AnalyzeText(context.Background(), tt.req)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}

	// Invalid requests never reach the LLM, the cache, or the ledger
	if mock.callCount() != 0 {
		t.Errorf("Expected no LLM calls for invalid input, got %d", mock.callCount())
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache after invalid input, got %d entries", c.Len())
	}
	if costs.DailyTotal() != 0 {
		t.Error("Expected no cost recorded for invalid input")
	}
}

func TestAnalyzeTextEmergencyStop(t *testing.T) {
	mock := &mockLLM{verdict: &llm.Verdict{AIScore: 80, Confidence: models.ConfidenceHigh, Explanation: "x"}}
	d, _, costs := newTestDetector(t, mock)

	costs.Record("whale", 30) // trip the 25 USD emergency threshold

	res, err := d.AnalyzeText(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.UsingFallback {
		t.Error("Expected fallback while emergency stop is active")
	}
	if mock.callCount() != 0 {
		t.Errorf("Expected no LLM calls during emergency stop, got %d", mock.callCount())
	}
}

func TestAnalyzeTextStatisticalOnlyMode(t *testing.T) {
	d, _, _ := newTestDetector(t, nil)

	res, err := d.AnalyzeText(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.UsingFallback {
		t.Error("Expected fallback result without an LLM client")
	}
	if res.AIScore < 0 || res.AIScore > 100 {
		t.Errorf("Score out of bounds: %d", res.AIScore)
	}
}

func TestAnalyzeTextConcurrentDeduplication(t *testing.T) {
	mock := &mockLLM{
		verdict: &llm.Verdict{AIScore: 60, Confidence: models.ConfidenceMedium, Explanation: "x"},
		delay:   50 * time.Millisecond,
	}
	d, _, _ := newTestDetector(t, mock)

	req := sampleRequest()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.AnalyzeText(context.Background(), req); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Concurrent identical requests share one upstream computation
	if calls := mock.callCount(); calls != 1 {
		t.Errorf("Expected 1 LLM call for concurrent identical requests, got %d", calls)
	}
}

func TestEngineStats(t *testing.T) {
	mock := &mockLLM{verdict: &llm.Verdict{AIScore: 50, Confidence: models.ConfidenceLow, Explanation: "x", EstimatedCostUSD: 0.002}}
	d, _, _ := newTestDetector(t, mock)

	if _, err := d.AnalyzeText(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	stats := d.EngineStats()
	if stats.CacheEntries != 1 {
		t.Errorf("Expected 1 cache entry, got %d", stats.CacheEntries)
	}
	if stats.DailyCostUSD != 0.002 {
		t.Errorf("Expected recorded cost 0.002, got %f", stats.DailyCostUSD)
	}
	if stats.EmergencyStopped {
		t.Error("Expected no emergency stop")
	}
}
