package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/truecheckia/detector/internal/models"
)

// TypeAnalyzeText is the asynchronous analysis task type.
const TypeAnalyzeText = "detector:analyze_text"

// AnalyzeTextPayload is the payload for asynchronous text analysis
type AnalyzeTextPayload struct {
	AnalysisID string          `json:"analysis_id"`
	Text       string          `json:"text"`
	Language   models.Language `json:"language"`
	UserID     string          `json:"user_id,omitempty"`
	Plan       models.PlanTier `json:"plan,omitempty"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// Client wraps the Asynq client for enqueueing tasks
type Client struct {
	client *asynq.Client
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
	}
}

// EnqueueAnalyzeText enqueues a text analysis task
func (c *Client) EnqueueAnalyzeText(ctx context.Context, analysisID string, req models.AnalysisRequest) (string, error) {
	payload := AnalyzeTextPayload{
		AnalysisID: analysisID,
		Text:       req.Text,
		Language:   req.Language,
		UserID:     req.UserID,
		Plan:       req.Plan,
		EnqueuedAt: time.Now().UnixNano(), // Record enqueue time for queue wait metrics
	}

	// Add tracing context if available
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeAnalyzeText),
			attribute.String("analysis_id", analysisID),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TypeAnalyzeText, payloadBytes, asynq.TaskID(analysisID))

	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(2 * time.Minute),
		asynq.Queue("analysis"),
		asynq.Retention(7 * 24 * time.Hour), // Keep completed tasks for 7 days
	}

	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue analyze text task: %w", err)
	}

	return info.ID, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}
