// Package detector orchestrates a single text analysis: cache lookup,
// health and cost gates, the LLM attempt, statistical fallback, ensemble
// scoring, and the cache write-through.
package detector

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/truecheckia/detector/internal/cache"
	"github.com/truecheckia/detector/internal/config"
	"github.com/truecheckia/detector/internal/cost"
	"github.com/truecheckia/detector/internal/ensemble"
	"github.com/truecheckia/detector/internal/llm"
	"github.com/truecheckia/detector/internal/metrics"
	"github.com/truecheckia/detector/internal/models"
	"github.com/truecheckia/detector/internal/statistical"
)

// LLMAnalyzer is the LLM path of the ensemble. A nil analyzer puts the
// engine in statistical-only mode.
type LLMAnalyzer interface {
	Analyze(ctx context.Context, text string, lang models.Language) (*llm.Verdict, error)
	EstimateCostUSD(text string) float64
}

// Deps are the injected collaborators. Cache and Costs are required; LLM
// and Metrics are optional.
type Deps struct {
	Cache   *cache.Cache
	Costs   *cost.Tracker
	LLM     LLMAnalyzer
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Detector is the analysis entry point invoked by the HTTP and queue layers.
type Detector struct {
	cfg     config.DetectionConfig
	cache   *cache.Cache
	costs   *cost.Tracker
	llm     LLMAnalyzer
	stats   *statistical.Analyzer
	scorer  *ensemble.Scorer
	metrics *metrics.Metrics
	logger  *slog.Logger
	flight  singleflight.Group
}

// New builds a Detector, validating the ensemble weights. Invalid weights
// abort startup.
func New(cfg config.DetectionConfig, deps Deps) (*Detector, error) {
	scorer, err := ensemble.NewScorer(
		ensemble.Weights{LLM: cfg.LLMWeight, Statistical: cfg.StatisticalWeight},
		ensemble.Thresholds{
			AIGenerated:      cfg.AIScoreThreshold,
			HighConfidence:   cfg.HighConfidenceThreshold,
			MediumConfidence: cfg.MediumConfidenceThreshold,
			Delta:            cfg.ConfidenceDelta,
		},
	)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Detector{
		cfg:     cfg,
		cache:   deps.Cache,
		costs:   deps.Costs,
		llm:     deps.LLM,
		stats:   statistical.New(),
		scorer:  scorer,
		metrics: deps.Metrics,
		logger:  logger,
	}, nil
}

// Stats is a snapshot of engine state for the stats endpoint.
type Stats struct {
	CacheEntries     int     `json:"cache_entries"`
	DailyCostUSD     float64 `json:"daily_cost_usd"`
	EmergencyStopped bool    `json:"emergency_stopped"`
}

// EngineStats returns the current snapshot.
func (d *Detector) EngineStats() Stats {
	return Stats{
		CacheEntries:     d.cache.Len(),
		DailyCostUSD:     d.costs.DailyTotal(),
		EmergencyStopped: d.costs.EmergencyStopped(),
	}
}

// AnalyzeText runs the full pipeline for one request. Provider and budget
// failures degrade to a fallback result; only validation failures return an
// error.
func (d *Detector) AnalyzeText(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	start := time.Now()

	if err := d.validate(req); err != nil {
		d.count("validation_error", req.Language)
		return models.AnalysisResult{}, err
	}

	if res, ok := d.cache.Get(req.Text, req.Language); ok {
		res.Cached = true
		res.ProcessingTimeMs = time.Since(start).Milliseconds()
		if d.metrics != nil {
			d.metrics.CacheHits.Inc()
		}
		d.count("ok", req.Language)
		return res, nil
	}
	if d.metrics != nil {
		d.metrics.CacheMisses.Inc()
	}

	// Concurrent first-requests for the same fingerprint share one upstream
	// computation instead of each paying for an LLM call.
	key := cache.Fingerprint(req.Text, req.Language)
	v, err, _ := d.flight.Do(key, func() (interface{}, error) {
		return d.analyze(ctx, req), nil
	})
	if err != nil {
		// The compute func never returns an error; this is unreachable.
		return models.AnalysisResult{}, err
	}

	res := v.(models.AnalysisResult)
	res.ProcessingTimeMs = time.Since(start).Milliseconds()
	if d.metrics != nil {
		d.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}
	d.count("ok", req.Language)
	return res, nil
}

// analyze performs the gated LLM attempt plus statistical scoring and
// writes the combined result through the cache.
func (d *Detector) analyze(ctx context.Context, req models.AnalysisRequest) models.AnalysisResult {
	stat := d.stats.Analyze(req.Text, req.Language)

	var verdict *llm.Verdict
	if d.llm != nil && d.llmAllowed(req) {
		v, err := d.llm.Analyze(ctx, req.Text, req.Language)
		if err != nil {
			d.cache.SetProviderHealth(false)
			d.logger.Warn("llm analysis failed, falling back to statistical scoring",
				"error", err,
				"language", string(req.Language),
				"text_chars", len(req.Text),
			)
		} else {
			d.cache.SetProviderHealth(true)
			d.costs.Record(req.UserID, v.EstimatedCostUSD)
			if d.metrics != nil {
				d.metrics.LLMCostUSD.Add(v.EstimatedCostUSD)
			}
			verdict = v
		}
	}

	res := d.scorer.Combine(verdict, stat)
	if res.UsingFallback && d.metrics != nil {
		d.metrics.Fallbacks.Inc()
	}

	d.cache.Set(req.Text, req.Language, res)
	return res
}

// llmAllowed applies the health gate and then the cost gates.
func (d *Detector) llmAllowed(req models.AnalysisRequest) bool {
	if ok, known := d.cache.ProviderHealth(); known && !ok {
		d.logger.Debug("skipping llm path, provider marked unhealthy")
		return false
	}

	estimated := d.llm.EstimateCostUSD(req.Text)
	allowed, remaining := d.costs.Allow(req.UserID, req.Plan, estimated)
	if !allowed {
		if d.metrics != nil {
			d.metrics.BudgetRejections.Inc()
		}
		d.logger.Info("llm path disallowed by cost gate",
			"user_id", req.UserID,
			"plan", string(req.Plan),
			"estimated_cost_usd", estimated,
			"remaining_usd", remaining,
		)
		return false
	}
	return true
}

// validate enforces the input contract before any scoring.
func (d *Detector) validate(req models.AnalysisRequest) error {
	if !req.Language.Valid() {
		return &ValidationError{Field: "language", Reason: "must be pt or en"}
	}
	n := utf8.RuneCountInString(req.Text)
	if n < d.cfg.MinTextLength {
		return &ValidationError{
			Field:  "text",
			Reason: "shorter than minimum length",
		}
	}
	if n > d.cfg.MaxTextLength {
		return &ValidationError{
			Field:  "text",
			Reason: "longer than maximum length",
		}
	}
	return nil
}

func (d *Detector) count(status string, lang models.Language) {
	if d.metrics != nil {
		d.metrics.AnalysesTotal.WithLabelValues(status, string(lang)).Inc()
	}
}
