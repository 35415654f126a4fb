package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/truecheckia/detector/internal/detector"
	"github.com/truecheckia/detector/internal/models"
)

// handleAnalyzeText runs a full detection pass for an enqueued request
func (w *Worker) handleAnalyzeText(ctx context.Context, t *asynq.Task) error {
	// Parse payload
	var payload AnalyzeTextPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", asynq.SkipRetry)
	}

	analysisID := payload.AnalysisID

	retryCount, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	// Calculate queue wait time
	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		enqueuedTime := time.Unix(0, payload.EnqueuedAt)
		queueWaitTime = time.Since(enqueuedTime)
	}

	w.logger.Info("processing analysis task",
		"analysis_id", analysisID,
		"text_length", len(payload.Text),
		"language", payload.Language,
		"retry_count", retryCount,
		"max_retries", maxRetry,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	// Recreate trace context from payload if available
	if payload.TraceID != "" && payload.SpanID != "" {
		traceID, err := trace.TraceIDFromHex(payload.TraceID)
		if err == nil {
			spanID, err := trace.SpanIDFromHex(payload.SpanID)
			if err == nil {
				remoteSpanCtx := trace.NewSpanContext(trace.SpanContextConfig{
					TraceID:    traceID,
					SpanID:     spanID,
					TraceFlags: trace.FlagsSampled,
					Remote:     true,
				})
				ctx = trace.ContextWithRemoteSpanContext(ctx, remoteSpanCtx)

				var span trace.Span
				ctx, span = otel.Tracer("detector").Start(ctx, "asynq.task.process",
					trace.WithSpanKind(trace.SpanKindConsumer),
					trace.WithAttributes(
						attribute.String("task.type", TypeAnalyzeText),
						attribute.String("analysis.id", analysisID),
						attribute.Int("text.length", len(payload.Text)),
						attribute.Int("retry_count", retryCount),
						attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
						attribute.Int64("enqueued_at", payload.EnqueuedAt),
					),
				)
				defer span.End()

				span.AddEvent("task_processing_started", trace.WithAttributes(
					attribute.Float64("wait_time_seconds", queueWaitTime.Seconds()),
				))
			}
		}
	}

	result, err := w.detector.AnalyzeText(ctx, models.AnalysisRequest{
		Text:     payload.Text,
		Language: payload.Language,
		UserID:   payload.UserID,
		Plan:     payload.Plan,
	})
	if err != nil {
		// Malformed input will never succeed no matter how often we retry
		var verr *detector.ValidationError
		if errors.As(err, &verr) {
			w.logger.Error("analysis rejected, not retrying",
				"analysis_id", analysisID,
				"error", err,
			)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		if isRetriableProviderError(err) {
			w.logger.Warn("retriable provider error, will retry",
				"analysis_id", analysisID,
				"error", err,
				"retry_count", retryCount,
			)
			return err // Let Asynq retry
		}

		w.logger.Error("permanent error analyzing text",
			"analysis_id", analysisID,
			"error", err,
		)
		return fmt.Errorf("failed to analyze text: %w", err)
	}

	now := time.Now()
	analysis := &models.Analysis{
		ID:        analysisID,
		Text:      payload.Text,
		Language:  payload.Language,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := w.db.SaveAnalysis(analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	w.logger.Info("analysis task completed",
		"analysis_id", analysisID,
		"ai_score", result.AIScore,
		"confidence", result.Confidence,
		"using_fallback", result.UsingFallback,
		"retry_count", retryCount,
	)

	return nil
}

// isRetriableProviderError determines if an error is retriable (connection/timeout)
// vs permanent (invalid input)
func isRetriableProviderError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retriablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"too many requests",
		"context deadline exceeded",
		"i/o timeout",
		"no such host",
		"network is unreachable",
	}

	for _, pattern := range retriablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
