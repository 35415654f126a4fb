package models

import "time"

// Language identifies the language of a submitted text.
type Language string

const (
	LanguageEN Language = "en"
	LanguagePT Language = "pt"
)

// Valid reports whether the language is one the engine supports.
func (l Language) Valid() bool {
	return l == LanguageEN || l == LanguagePT
}

// Confidence buckets how trustworthy a final score is.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// PlanTier is the subscription tier used for per-user cost limits.
type PlanTier string

const (
	PlanFree       PlanTier = "FREE"
	PlanPro        PlanTier = "PRO"
	PlanEnterprise PlanTier = "ENTERPRISE"
)

// AnalysisRequest is the input to the detection engine.
type AnalysisRequest struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
	UserID   string   `json:"user_id,omitempty"`
	Plan     PlanTier `json:"plan,omitempty"`
}

// SuspiciousPart marks a text span with an elevated AI-likelihood sub-score.
type SuspiciousPart struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// AnalysisResult is the final output of a single analysis. It is created once
// per request and never mutated afterwards.
type AnalysisResult struct {
	AIScore          int              `json:"ai_score"`
	Confidence       Confidence       `json:"confidence"`
	IsAIGenerated    bool             `json:"is_ai_generated"`
	Indicators       []string         `json:"indicators"`
	Explanation      string           `json:"explanation"`
	SuspiciousParts  []SuspiciousPart `json:"suspicious_parts"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	WordCount        int              `json:"word_count"`
	CharCount        int              `json:"char_count"`
	TokensUsed       int              `json:"tokens_used"`
	EstimatedCostUSD float64          `json:"estimated_cost_usd"`
	Cached           bool             `json:"cached"`
	UsingFallback    bool             `json:"using_fallback"`
}

// Analysis is a persisted analysis record.
type Analysis struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Language  Language       `json:"language"`
	Result    AnalysisResult `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
