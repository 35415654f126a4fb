// Package llm calls the LLM provider for an AI-authorship verdict and
// parses its JSON response strictly.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/truecheckia/detector/internal/models"
)

const (
	DefaultModel   = "llama3.1:8b"
	DefaultTimeout = 30 * time.Second
)

// ProviderError signals that the LLM call failed: timeout, network error,
// or a malformed response. Callers recover via the statistical fallback.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Verdict is the parsed LLM assessment of a text.
type Verdict struct {
	AIScore          int               `json:"ai_score"`
	Confidence       models.Confidence `json:"confidence"`
	Indicators       []string          `json:"indicators"`
	Explanation      string            `json:"explanation"`
	TokensUsed       int               `json:"tokens_used"`
	EstimatedCostUSD float64           `json:"estimated_cost_usd"`
}

// Config contains settings for the client.
type Config struct {
	URL         string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	// RedactLogs suppresses prompt/response content in logs; only lengths
	// and metrics are recorded. Always set in production.
	RedactLogs bool
}

// Client wraps the Ollama API client.
type Client struct {
	client      *api.Client
	model       string
	timeout     time.Duration
	temperature float64
	redactLogs  bool
	logger      *slog.Logger
}

// bearerTransport adds an Authorization header for hosted endpoints.
type bearerTransport struct {
	key  string
	next http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.key)
	return t.next.RoundTrip(req)
}

// New creates a new LLM client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM provider URL: %w", err)
	}

	httpClient := http.DefaultClient
	if cfg.APIKey != "" {
		httpClient = &http.Client{
			Transport: &bearerTransport{key: cfg.APIKey, next: http.DefaultTransport},
		}
	}

	return &Client{
		client:      api.NewClient(baseURL, httpClient),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		redactLogs:  cfg.RedactLogs,
		logger:      logger,
	}, nil
}

// Analyze asks the model for an authorship verdict on the text.
func (c *Client) Analyze(ctx context.Context, text string, lang models.Language) (*Verdict, error) {
	prompt := buildPrompt(text, lang)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("llm request",
		"model", c.model,
		"language", string(lang),
		"prompt_chars", len(prompt),
		"timeout", c.timeout,
	)

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
		Options: map[string]any{
			"temperature": c.temperature,
		},
	}

	var response strings.Builder
	var inputTokens, outputTokens int
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		if resp.PromptEvalCount > 0 {
			inputTokens = resp.PromptEvalCount
		}
		if resp.EvalCount > 0 {
			outputTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, &ProviderError{Op: "generate", Err: err}
	}

	raw := strings.TrimSpace(response.String())
	if !c.redactLogs {
		c.logger.Debug("llm response", "body", raw)
	}
	c.logger.Debug("llm response received", "response_chars", len(raw))

	verdict, err := parseVerdict(raw)
	if err != nil {
		return nil, &ProviderError{Op: "parse", Err: err}
	}

	// Usage metadata when the provider reports it, character estimation
	// otherwise.
	if inputTokens == 0 {
		inputTokens = estimateTokens(prompt)
	}
	if outputTokens == 0 {
		outputTokens = estimateTokens(raw)
	}
	verdict.TokensUsed = inputTokens + outputTokens
	verdict.EstimatedCostUSD = estimateCostUSD(c.model, inputTokens, outputTokens)

	return verdict, nil
}

// EstimateCostUSD predicts the cost of analyzing a text, used by the budget
// gate before any call is made. Assumes a ~300 token verdict.
func (c *Client) EstimateCostUSD(text string) float64 {
	input := estimateTokens(buildPrompt(text, models.LanguageEN))
	return estimateCostUSD(c.model, input, 300)
}

// buildPrompt renders the detection instruction for the given language.
func buildPrompt(text string, lang models.Language) string {
	language := "English"
	if lang == models.LanguagePT {
		language = "Brazilian Portuguese"
	}

	return fmt.Sprintf(`You are an expert at detecting AI-generated text. Analyze the following %s text and decide how likely it is to have been written by an AI.

Consider writing patterns, vocabulary choices, structural uniformity, hedging language, and the presence or absence of a personal voice.

Respond with ONLY a JSON object with these fields:
- ai_score: integer 0-100, where 0 = certainly human and 100 = certainly AI
- confidence: "LOW" | "MEDIUM" | "HIGH"
- indicators: array of short strings naming the markers you found
- explanation: 1-2 sentences justifying the score

Text to analyze:
%s

JSON object:`, language, text)
}

// rawVerdict mirrors the expected response shape with pointer fields so
// missing keys are distinguishable from zero values.
type rawVerdict struct {
	AIScore     *float64 `json:"ai_score"`
	Confidence  *string  `json:"confidence"`
	Indicators  []string `json:"indicators"`
	Explanation *string  `json:"explanation"`
}

// parseVerdict extracts the first well-formed JSON object from the model
// output and validates every required field. Any violation is an error;
// the caller falls back rather than trusting a partial verdict.
func parseVerdict(response string) (*Verdict, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse verdict JSON: %w", err)
	}

	if raw.AIScore == nil {
		return nil, fmt.Errorf("verdict missing required field ai_score")
	}
	if raw.Confidence == nil {
		return nil, fmt.Errorf("verdict missing required field confidence")
	}
	if raw.Explanation == nil || strings.TrimSpace(*raw.Explanation) == "" {
		return nil, fmt.Errorf("verdict missing required field explanation")
	}

	score := int(*raw.AIScore)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var confidence models.Confidence
	switch strings.ToUpper(strings.TrimSpace(*raw.Confidence)) {
	case "LOW":
		confidence = models.ConfidenceLow
	case "MEDIUM":
		confidence = models.ConfidenceMedium
	case "HIGH":
		confidence = models.ConfidenceHigh
	default:
		return nil, fmt.Errorf("verdict has invalid confidence %q", *raw.Confidence)
	}

	indicators := raw.Indicators
	if indicators == nil {
		indicators = []string{}
	}

	return &Verdict{
		AIScore:     score,
		Confidence:  confidence,
		Indicators:  indicators,
		Explanation: strings.TrimSpace(*raw.Explanation),
	}, nil
}
