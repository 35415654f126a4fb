package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/truecheckia/detector/internal/models"
)

// TestAnalyzeTextPayload tests the AnalyzeTextPayload structure
func TestAnalyzeTextPayload(t *testing.T) {
	payload := AnalyzeTextPayload{
		AnalysisID: "test-123",
		Text:       "Sample text for detection",
		Language:   models.LanguagePT,
		UserID:     "user-42",
		Plan:       models.PlanPro,
		EnqueuedAt: 1700000000000000000,
	}

	data, err := json.Marshal(payload)
	assert.NoError(t, err)
	assert.NotEmpty(t, data)

	var decoded AnalyzeTextPayload
	err = json.Unmarshal(data, &decoded)
	assert.NoError(t, err)
	assert.Equal(t, payload.AnalysisID, decoded.AnalysisID)
	assert.Equal(t, payload.Text, decoded.Text)
	assert.Equal(t, payload.Language, decoded.Language)
	assert.Equal(t, payload.UserID, decoded.UserID)
	assert.Equal(t, payload.Plan, decoded.Plan)
	assert.Equal(t, payload.EnqueuedAt, decoded.EnqueuedAt)
}

// TestAnalyzeTextPayloadOmitsEmptyFields tests optional field omission
func TestAnalyzeTextPayloadOmitsEmptyFields(t *testing.T) {
	payload := AnalyzeTextPayload{
		AnalysisID: "test-456",
		Text:       "anonymous request",
		Language:   models.LanguageEN,
	}

	data, err := json.Marshal(payload)
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "user_id")
	assert.NotContains(t, string(data), "trace_id")
	assert.NotContains(t, string(data), "span_id")
}

// TestIsRetriableProviderError tests error classification
func TestIsRetriableProviderError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"connection refused", errors.New("connection refused"), true},
		{"timeout", errors.New("request timeout after 30s"), true},
		{"deadline exceeded", errors.New("context deadline exceeded"), true},
		{"service unavailable", errors.New("503 service unavailable"), true},
		{"dns failure", errors.New("no such host"), true},
		{"nil error", nil, false},
		{"parse failure", errors.New("verdict missing required field ai_score"), false},
		{"generic failure", errors.New("something went wrong"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetriableProviderError(tt.err))
		})
	}
}
