package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/benvon/questline/internal/config"
	"github.com/benvon/questline/internal/database"
	"github.com/benvon/questline/internal/logger"
	"github.com/benvon/questline/internal/models"
	"github.com/benvon/questline/internal/services/analysis"
	"github.com/benvon/questline/internal/services/oracle"
	"github.com/benvon/questline/internal/suggestions"
	"github.com/benvon/questline/internal/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	var (
		userIDStr  string
		text       string
		sourceKind string
		debugMode  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the analysis pipeline once",
		Long:  "Analyze a single piece of text against the user's quests and print the resulting suggestions without enqueueing a job",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			text = validation.SanitizeText(text)
			if text == "" {
				return fmt.Errorf("--text is required")
			}
			if err := validation.ValidateSourceKind(sourceKind); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.OpenAIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is not configured")
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			var zapLogger *zap.Logger
			if debugMode {
				zapLogger, err = logger.NewDevelopment(true)
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				defer func() {
					_ = logger.Sync(zapLogger)
				}()
			}

			store := database.NewStore(database.NewQuestRepository(db), database.NewTaskRepository(db))
			registry := suggestions.NewRegistry(nil, zapLogger)

			oracleClient := oracle.NewOpenAIOracle(cfg.OpenAIKey, cfg.OracleBaseURL, cfg.OracleModel, cfg.OracleTimeout, zapLogger, debugMode)
			repairer := analysis.NewRepairer(oracleClient, zapLogger)
			orchestrator := analysis.NewOrchestrator(
				analysis.NewMatcher(oracleClient, repairer, zapLogger),
				analysis.NewExtractor(oracleClient, repairer, zapLogger),
				analysis.NewDetector(oracleClient, repairer, zapLogger),
				store,
				registry,
				zapLogger,
			)

			content := &models.ContentUnit{
				ID:         uuid.New(),
				UserID:     userID,
				Text:       text,
				SourceKind: models.SourceKind(sourceKind),
				CreatedAt:  time.Now().UTC(),
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			report, err := orchestrator.Analyze(ctx, content)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			fmt.Printf("Analyzed content %s\n", report.ContentID)
			if report.Err != nil {
				fmt.Fprintf(os.Stderr, "Warning: some analysis paths failed: %v\n", report.Err)
			}

			if len(report.Relevance) > 0 {
				fmt.Println("\nRelevance:")
				for _, rel := range report.Relevance {
					fmt.Printf("  quest %d: relevant=%v, %d task(s)\n", rel.QuestID, rel.IsRelevant, len(rel.RelevantTasks))
				}
			}

			if report.Change != nil {
				fmt.Printf("\nStatus change: task %d -> %s (confidence %.2f)\n",
					report.Change.TaskID, report.Change.NewStatus, report.Change.Confidence)
			}

			snap := registry.Snapshot()
			if len(snap.Tasks) == 0 && len(snap.Goals) == 0 {
				fmt.Println("\nNo suggestions produced")
				return nil
			}

			fmt.Println("\nSuggestions:")
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(snap)
		},
	}

	cmd.Flags().StringVar(&userIDStr, "user", "", "User ID whose quests provide context (required)")
	cmd.Flags().StringVar(&text, "text", "", "Text to analyze (required)")
	cmd.Flags().StringVar(&sourceKind, "source", "journal", "Source kind: chat or journal")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug mode for oracle API logging")

	return cmd
}
