package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benvon/questline/internal/config"
	"github.com/benvon/questline/internal/database"
	"github.com/benvon/questline/internal/queue"
	"github.com/benvon/questline/internal/services/oracle"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var withOracle bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test backing service connectivity",
		Long:  "Check that the database, Redis, RabbitMQ, and optionally the oracle provider are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			fmt.Println("Testing database connection...")
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()
			if err := db.Health(ctx); err != nil {
				return fmt.Errorf("database health check failed: %w", err)
			}
			fmt.Println("✓ Database is reachable")

			fmt.Println("\nTesting Redis connection...")
			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid Redis URL: %w", err)
			}
			redisClient := redis.NewClient(redisOpts)
			defer func() {
				if err := redisClient.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close Redis connection: %v\n", err)
				}
			}()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("Redis ping failed: %w", err)
			}
			fmt.Println("✓ Redis is reachable")

			fmt.Println("\nTesting RabbitMQ connection...")
			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ connection: %v\n", err)
				}
			}()
			if err := jobQueue.HealthCheck(ctx); err != nil {
				return fmt.Errorf("RabbitMQ health check failed: %w", err)
			}
			fmt.Println("✓ RabbitMQ is reachable")

			if withOracle {
				fmt.Println("\nTesting oracle provider...")
				if cfg.OpenAIKey == "" {
					return fmt.Errorf("OPENAI_API_KEY is not configured")
				}
				o := oracle.NewOpenAIOracle(cfg.OpenAIKey, cfg.OracleBaseURL, cfg.OracleModel, cfg.OracleTimeout, nil, false)
				if _, err := o.Generate(ctx, "Reply with the single word: ok", oracle.GenerateOptions{MaxOutputTokens: 8}); err != nil {
					return fmt.Errorf("oracle round-trip failed: %w", err)
				}
				fmt.Println("✓ Oracle provider responded")
			}

			fmt.Println("\n✓ Connectivity test passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withOracle, "oracle", false, "Also send a test prompt to the oracle provider")

	return cmd
}
