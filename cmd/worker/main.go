package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benvon/questline/internal/config"
	"github.com/benvon/questline/internal/database"
	"github.com/benvon/questline/internal/logger"
	"github.com/benvon/questline/internal/queue"
	"github.com/benvon/questline/internal/services/analysis"
	"github.com/benvon/questline/internal/services/oracle"
	"github.com/benvon/questline/internal/suggestions"
	"github.com/benvon/questline/internal/workers"
	"github.com/redis/go-redis/v9"
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
	debugMode := cfg.WorkerDebugMode || *debugFlag

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

	zapLogger.Info("Starting worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("oracle_provider", cfg.OracleProvider),
		zap.String("oracle_model", cfg.OracleModel),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to database")

	// Connect to Redis so suggestion snapshots reach the API servers
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// Initialize repositories
	questRepo := database.NewQuestRepository(db)
	taskRepo := database.NewTaskRepository(db)
	store := database.NewStore(questRepo, taskRepo)

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to RabbitMQ",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Create the text oracle
	var oracleClient oracle.Oracle
	if cfg.OracleProvider == "" || cfg.OracleProvider == "openai" {
		oracleClient = oracle.NewOpenAIOracle(
			cfg.OpenAIKey,
			cfg.OracleBaseURL,
			cfg.OracleModel,
			cfg.OracleTimeout,
			zapLogger,
			debugMode,
		)
	} else {
		zapLogger.Fatal("Unsupported oracle provider", zap.String("provider", cfg.OracleProvider))
	}

	zapLogger.Info("Initialized oracle provider",
		zap.String("provider", cfg.OracleProvider),
		zap.String("model", cfg.OracleModel),
	)

	// Suggestions produced here are published to Redis so API servers can
	// mirror them into their SSE streams
	notifier := suggestions.NewRedisNotifier(redisClient, zapLogger)
	registry := suggestions.NewRegistry(notifier, zapLogger)

	// Assemble the analysis pipeline
	repairer := analysis.NewRepairer(oracleClient, zapLogger)
	orchestrator := analysis.NewOrchestrator(
		analysis.NewMatcher(oracleClient, repairer, zapLogger),
		analysis.NewExtractor(oracleClient, repairer, zapLogger),
		analysis.NewDetector(oracleClient, repairer, zapLogger),
		store,
		registry,
		zapLogger,
	)

	analyzer := workers.NewContentAnalyzer(orchestrator, jobQueue)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("Failed to start consuming messages", zap.Error(err))
	}

	zapLogger.Info("Worker started, consuming messages from queue")

	// Process messages
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("Message channel closed")
					return
				}

				// Process job
				if err := analyzer.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("Failed to process job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("Queue error", zap.Error(err))
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("Shutdown signal received, stopping worker...")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("Worker stopped")
}
