package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/truecheckia/detector/internal/api"
	"github.com/truecheckia/detector/internal/cache"
	"github.com/truecheckia/detector/internal/config"
	"github.com/truecheckia/detector/internal/cost"
	"github.com/truecheckia/detector/internal/database"
	"github.com/truecheckia/detector/internal/detector"
	"github.com/truecheckia/detector/internal/llm"
	"github.com/truecheckia/detector/internal/metrics"
	"github.com/truecheckia/detector/internal/queue"
	"github.com/truecheckia/detector/internal/tracing"
	"github.com/truecheckia/detector/pkg/logging"
)

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("detector service initializing", "version", "1.0.0")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize tracing
	tp, err := tracing.InitTracer("truecheckia-detector")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Initialize database
	db, err := database.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "database_path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize detection engine dependencies
	resultCache := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL, cfg.Cache.HealthTTL)
	costTracker := cost.NewTracker(cfg.Cost, logger)
	engineMetrics := metrics.New()

	// The LLM client is optional: when it cannot be built the engine runs in
	// permanent statistical fallback mode.
	var llmClient detector.LLMAnalyzer
	client, err := llm.New(llm.Config{
		URL:         cfg.LLM.URL,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Timeout:     cfg.LLM.Timeout,
		Temperature: cfg.LLM.Temperature,
		RedactLogs:  cfg.Production(),
	}, logger)
	if err != nil {
		logger.Warn("failed to initialize LLM client, running in fallback mode",
			"error", err,
			"llm_url", cfg.LLM.URL,
			"llm_model", cfg.LLM.Model,
		)
	} else {
		logger.Info("LLM client initialized", "model", cfg.LLM.Model, "url", cfg.LLM.URL)
		llmClient = client
	}

	engine, err := detector.New(cfg.Detection, detector.Deps{
		Cache:   resultCache,
		Costs:   costTracker,
		LLM:     llmClient,
		Metrics: engineMetrics,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialize detection engine", "error", err)
		os.Exit(1)
	}

	// Initialize queue client and worker for async analysis
	queueClient := queue.NewClient(queue.ClientConfig{RedisAddr: cfg.RedisAddr})
	defer queueClient.Close()

	worker := queue.NewWorker(queue.WorkerConfig{
		RedisAddr:   cfg.RedisAddr,
		Concurrency: 4,
	}, db, engine, logger)

	go func() {
		if err := worker.Start(); err != nil {
			logger.Error("queue worker stopped", "error", err)
		}
	}()
	defer worker.Shutdown()

	// Initialize API handler
	apiHandler := api.NewHandler(db, engine, queueClient)

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware("detector")(apiHandler),
	)

	// Extended write timeout covers slow LLM generations
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("detector service starting",
			"port", cfg.Port,
			"database", cfg.DBPath,
			"redis", cfg.RedisAddr,
			"llm_enabled", llmClient != nil,
			"llm_model", cfg.LLM.Model,
			"app_env", cfg.AppEnv,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
