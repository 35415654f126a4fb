package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/truecheckia/detector/internal/database"
	"github.com/truecheckia/detector/internal/detector"
	"github.com/truecheckia/detector/internal/models"
	"github.com/truecheckia/detector/internal/tracing"
)

// TextAnalyzer runs the detection pipeline for a single request.
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error)
	EngineStats() detector.Stats
}

// QueueClient enqueues analysis requests for background processing.
type QueueClient interface {
	EnqueueAnalyzeText(ctx context.Context, analysisID string, req models.AnalysisRequest) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	db          *database.DB
	analyzer    TextAnalyzer
	queueClient QueueClient
	mux         *http.ServeMux
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(db *database.DB, analyzer TextAnalyzer, queueClient QueueClient) http.Handler {
	h := &Handler{
		db:          db,
		analyzer:    analyzer,
		queueClient: queueClient,
		mux:         http.NewServeMux(),
	}

	h.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler()) // Prometheus metrics endpoint
	h.mux.HandleFunc("/api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/api/analyze/async", h.handleAnalyzeAsync)
	h.mux.HandleFunc("/api/jobs/", h.handleJobStatus)
	h.mux.HandleFunc("/api/analyses", h.handleListAnalyses)
	h.mux.HandleFunc("/api/analyses/", h.handleGetAnalysis)
	h.mux.HandleFunc("/api/stats", h.handleStats)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// analyzeRequest is the request body shared by sync and async analysis.
type analyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Plan     string `json:"plan,omitempty"`
}

func (r analyzeRequest) toModel() models.AnalysisRequest {
	lang := models.Language(r.Language)
	if r.Language == "" {
		lang = models.LanguageEN
	}
	plan := models.PlanTier(r.Plan)
	if r.Plan == "" {
		plan = models.PlanFree
	}
	return models.AnalysisRequest{
		Text:     r.Text,
		Language: lang,
		UserID:   r.UserID,
		Plan:     plan,
	}
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleAnalyze runs a synchronous analysis and stores the result
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Text == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)),
		attribute.String("text.language", req.Language))

	modelReq := req.toModel()
	result, err := h.analyzer.AnalyzeText(r.Context(), modelReq)
	if err != nil {
		var verr *detector.ValidationError
		if errors.As(err, &verr) {
			respondError(w, verr.Error(), http.StatusBadRequest)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now()
	analysis := &models.Analysis{
		ID:        uuid.NewString(),
		Text:      modelReq.Text,
		Language:  modelReq.Language,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if h.db != nil {
		if err := h.db.SaveAnalysis(analysis); err != nil {
			respondError(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	respondJSON(w, analysis, http.StatusOK)
}

// handleAnalyzeAsync enqueues an analysis and returns the job ID
func (h *Handler) handleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Text == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return
	}

	if h.queueClient == nil {
		respondError(w, "Async analysis is not available", http.StatusServiceUnavailable)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)))

	analysisID := uuid.NewString()
	taskID, err := h.queueClient.EnqueueAnalyzeText(r.Context(), analysisID, req.toModel())
	if err != nil {
		respondError(w, "Failed to enqueue analysis: "+err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id":  analysisID,
		"task_id": taskID,
		"status":  "queued",
		"message": "Analysis queued for processing",
	}, http.StatusAccepted)
}

// handleJobStatus reports the state of an asynchronously queued analysis
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := r.URL.Path[len("/api/jobs/"):]
	if jobID == "" {
		respondError(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	analysis, err := h.db.GetAnalysis(jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSON(w, map[string]interface{}{
				"job_id":  jobID,
				"status":  "pending",
				"message": "Analysis not completed yet - it may still be queued",
			}, http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id":     jobID,
		"status":     "completed",
		"created_at": analysis.CreatedAt,
		"updated_at": analysis.UpdatedAt,
		"analysis":   analysis,
	}, http.StatusOK)
}

// handleListAnalyses handles listing stored analyses with pagination
func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	analyses, err := h.db.ListAnalyses(limit, offset)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if analyses == nil {
		analyses = []*models.Analysis{}
	}

	respondJSON(w, analyses, http.StatusOK)
}

// handleGetAnalysis retrieves a specific analysis by ID
func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Path[len("/api/analyses/"):]
	if id == "" {
		respondError(w, "Analysis ID is required", http.StatusBadRequest)
		return
	}

	analysis, err := h.db.GetAnalysis(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, analysis, http.StatusOK)
}

// handleStats exposes an engine state snapshot
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.analyzer.EngineStats()

	response := map[string]interface{}{
		"cache_entries":     stats.CacheEntries,
		"daily_cost_usd":    stats.DailyCostUSD,
		"emergency_stopped": stats.EmergencyStopped,
	}
	if h.db != nil {
		if count, err := h.db.CountAnalyses(); err == nil {
			response["stored_analyses"] = count
		}
	}

	respondJSON(w, response, http.StatusOK)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
