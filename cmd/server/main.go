package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/questline/internal/config"
	"github.com/benvon/questline/internal/database"
	"github.com/benvon/questline/internal/handlers"
	"github.com/benvon/questline/internal/logger"
	"github.com/benvon/questline/internal/middleware"
	"github.com/benvon/questline/internal/queue"
	"github.com/benvon/questline/internal/services/analysis"
	"github.com/benvon/questline/internal/services/oracle"
	"github.com/benvon/questline/internal/suggestions"
	"github.com/benvon/questline/internal/telemetry"
	"github.com/benvon/questline/internal/workers"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for oracle API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.New(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("oracle_provider", cfg.OracleProvider),
		zap.String("oracle_model", cfg.OracleModel),
		zap.Bool("embed_worker", cfg.EmbedWorker),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "questline-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting and snapshot fan-out
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for job queue (required)
	// Retry connection with exponential backoff to handle RabbitMQ startup delays
	jobQueue, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Initialize repositories
	questRepo := database.NewQuestRepository(db)
	taskRepo := database.NewTaskRepository(db)
	contentRepo := database.NewContentRepository(db)
	store := database.NewStore(questRepo, taskRepo)

	// Initialize suggestion registry with Redis snapshot fan-out
	notifier := suggestions.NewRedisNotifier(redisClient, zapLogger)
	registry := suggestions.NewRegistry(notifier, zapLogger)

	// Initialize analysis pipeline
	oracleClient, err := createOracle(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_oracle_provider", zap.Error(err))
	}
	repairer := analysis.NewRepairer(oracleClient, zapLogger)
	orchestrator := analysis.NewOrchestrator(
		analysis.NewMatcher(oracleClient, repairer, zapLogger),
		analysis.NewExtractor(oracleClient, repairer, zapLogger),
		analysis.NewDetector(oracleClient, repairer, zapLogger),
		store,
		registry,
		zapLogger,
	)

	// Initialize handlers
	analyzeHandler := handlers.NewAnalyzeHandler(contentRepo, jobQueue)
	suggestionHandler := handlers.NewSuggestionHandler(registry, orchestrator)
	eventsHandler := handlers.NewEventsHandler(registry)
	healthChecker := handlers.NewHealthChecker(db, redisClient, jobQueue)

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")

	// OpenTelemetry tracing (outermost, if enabled)
	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("questline-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	// CORS
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	// Request size limits
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	// Content-Type validation for POST/PATCH/PUT requests
	r.Use(middleware.ContentType)
	// Error handler (catches panics)
	r.Use(middleware.ErrorHandler(zapLogger))
	// Logging (innermost, executes last before handler)
	r.Use(middleware.Logging(zapLogger))

	// Rate limit middleware, applied selectively to the analyze route
	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.AnalyzeRateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	// OpenAPI spec (public)
	openAPIPath := filepath.Join("api", "openapi", "openapi.yaml")
	openAPIHandler := handlers.NewOpenAPIHandler(openAPIPath)
	openAPIHandler.RegisterRoutes(r)

	// API v1 routes. The request timeout stays off the SSE events route:
	// http.TimeoutHandler buffers responses and hides http.Flusher.
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	timeoutMW := middleware.Timeout(30 * time.Second)

	analyzeRouter := apiRouter.PathPrefix("").Subrouter()
	analyzeRouter.Use(rateLimitMW, timeoutMW)
	analyzeHandler.RegisterRoutes(analyzeRouter)

	eventsHandler.RegisterRoutes(apiRouter)
	suggestionRouter := apiRouter.PathPrefix("/suggestions").Subrouter()
	suggestionRouter.Use(timeoutMW)
	suggestionHandler.RegisterRoutes(suggestionRouter)

	// Catch-all OPTIONS handler for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	if cfg.EmbedWorker {
		// Consume analysis jobs in-process; suggestions land in this
		// registry and reach SSE clients directly.
		analyzer := workers.NewContentAnalyzer(orchestrator, jobQueue)
		if err := startConsumer(runCtx, analyzer, jobQueue, cfg.RabbitMQPrefetch, zapLogger); err != nil {
			zapLogger.Fatal("failed_to_start_embedded_consumer", zap.Error(err))
		}
		zapLogger.Info("embedded_worker_started", zap.Int("prefetch", cfg.RabbitMQPrefetch))
	} else {
		// A standalone worker owns the registry; mirror its snapshots
		// so SSE clients on this process still see updates.
		go func() {
			if err := notifier.Listen(runCtx, registry.LoadSnapshot); err != nil && err != context.Canceled {
				zapLogger.Error("snapshot_listener_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("mirroring_worker_snapshots", zap.String("channel", suggestions.Channel))
	}

	// Start DLQ garbage collector if the queue implementation supports it
	// Run every hour, retain messages for 24 hours
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour)
		go func() {
			if err := dlqGC.Start(runCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	runCancel()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ dials the broker with exponential backoff to ride out
// broker startup delays.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue, nil
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
		if delay > 30*time.Second {
			delay = 30 * time.Second // Cap at 30 seconds
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}

// startConsumer begins consuming analysis jobs on background goroutines.
func startConsumer(ctx context.Context, analyzer *workers.ContentAnalyzer, jobQueue queue.JobQueue, prefetch int, zapLogger *zap.Logger) error {
	msgChan, errChan, err := jobQueue.Consume(ctx, prefetch)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				if err := analyzer.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	return nil
}

// createOracle creates a text oracle based on configuration
func createOracle(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) (oracle.Oracle, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	providerType := cfg.OracleProvider
	if providerType == "" {
		providerType = "openai"
	}

	// Create provider directly with logger support
	if providerType == "openai" {
		return oracle.NewOpenAIOracle(
			cfg.OpenAIKey,
			cfg.OracleBaseURL,
			cfg.OracleModel,
			cfg.OracleTimeout,
			zapLogger,
			debugMode,
		), nil
	}

	// Fallback to registry for other providers (without logger)
	registry := oracle.NewRegistry()
	oracle.RegisterOpenAI(registry)

	providerConfig := map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.OracleModel,
		"base_url": cfg.OracleBaseURL,
	}

	return registry.Get(providerType, providerConfig)
}
