// Package ensemble combines LLM and statistical sub-scores into the final
// analysis verdict.
package ensemble

import (
	"fmt"
	"math"

	"github.com/truecheckia/detector/internal/llm"
	"github.com/truecheckia/detector/internal/models"
	"github.com/truecheckia/detector/internal/statistical"
)

// Weights are the fixed ensemble weights. They must sum to 1.0 (±0.01).
type Weights struct {
	LLM         float64
	Statistical float64
}

// Validate checks the weight-sum invariant.
func (w Weights) Validate() error {
	sum := w.LLM + w.Statistical
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("ensemble weights must sum to 1.0, got %.3f", sum)
	}
	if w.LLM < 0 || w.Statistical < 0 {
		return fmt.Errorf("ensemble weights must be non-negative")
	}
	return nil
}

// Thresholds control score classification.
type Thresholds struct {
	// AIGenerated is the final score at or above which a text is flagged.
	AIGenerated int
	// HighConfidence is the minimum LLM score for a HIGH confidence verdict.
	HighConfidence int
	// MediumConfidence is the minimum combined score for MEDIUM confidence.
	MediumConfidence int
	// Delta is the maximum spread between sub-scores for HIGH confidence.
	Delta int
}

// Scorer combines sub-scores with fixed weights.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer fails fast on invalid weights so misconfiguration surfaces at
// startup, never at request time.
func NewScorer(w Weights, t Thresholds) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w, thresholds: t}, nil
}

// Combine produces the final result from the available sub-analyses. A nil
// verdict means the LLM path was skipped or failed: the statistical score
// stands alone, the result is marked as fallback, and confidence is capped
// at LOW.
func (s *Scorer) Combine(verdict *llm.Verdict, stat statistical.Result) models.AnalysisResult {
	res := models.AnalysisResult{
		SuspiciousParts: stat.SuspiciousParts,
		WordCount:       stat.WordCount,
		CharCount:       stat.CharCount,
	}
	if res.SuspiciousParts == nil {
		res.SuspiciousParts = []models.SuspiciousPart{}
	}

	if verdict == nil {
		res.AIScore = stat.Score
		res.Confidence = models.ConfidenceLow
		res.UsingFallback = true
		res.Indicators = append([]string{}, stat.Indicators...)
		res.Explanation = "Statistical analysis only; the language model was unavailable, so certainty is reduced."
	} else {
		combined := s.weights.LLM*float64(verdict.AIScore) + s.weights.Statistical*float64(stat.Score)
		res.AIScore = int(math.Round(combined))
		res.Confidence = s.confidence(verdict.AIScore, stat.Score, res.AIScore)
		res.Indicators = append(append([]string{}, verdict.Indicators...), stat.Indicators...)
		res.Explanation = verdict.Explanation
		res.TokensUsed = verdict.TokensUsed
		res.EstimatedCostUSD = verdict.EstimatedCostUSD
	}

	if res.Indicators == nil {
		res.Indicators = []string{}
	}
	res.IsAIGenerated = res.AIScore >= s.thresholds.AIGenerated
	return res
}

// confidence buckets the verdict: HIGH when both methods agree closely and
// the LLM itself is emphatic, MEDIUM for clearly elevated combined scores,
// LOW otherwise.
func (s *Scorer) confidence(llmScore, statScore, combined int) models.Confidence {
	spread := llmScore - statScore
	if spread < 0 {
		spread = -spread
	}
	if spread < s.thresholds.Delta && llmScore >= s.thresholds.HighConfidence {
		return models.ConfidenceHigh
	}
	if combined >= s.thresholds.MediumConfidence {
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}
