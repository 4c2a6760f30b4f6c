package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kokorolog/feedback-service/internal/database"
	"github.com/kokorolog/feedback-service/internal/diary"
	"github.com/kokorolog/feedback-service/internal/feedback"
	"github.com/kokorolog/feedback-service/internal/generator"
	"github.com/kokorolog/feedback-service/internal/persona"
	"github.com/kokorolog/feedback-service/internal/queue"
	"github.com/kokorolog/feedback-service/internal/scheduler"
	"github.com/kokorolog/feedback-service/internal/users"
)

var (
	runReferenceTime string
	runOutputJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one daily feedback batch cycle",
	Long: `Enumerates active users, enqueues them, drains the generation queue
and prints the run report. Equivalent to the cron-triggered HTTP endpoint.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runReferenceTime, "reference-time", "", "window anchor, RFC 3339 (default: now)")
	runCmd.Flags().BoolVar(&runOutputJSON, "json", false, "print the run report as JSON")
}

func runBatch(cmd *cobra.Command, args []string) error {
	var reference time.Time
	if runReferenceTime != "" {
		parsed, err := time.Parse(time.RFC3339, runReferenceTime)
		if err != nil {
			return fmt.Errorf("invalid --reference-time: %w", err)
		}
		reference = parsed
	}

	ctx := context.Background()
	pool := database.Pool()

	queueStore := queue.New(pool, logger, cfg.Batch.QueueMaxRetries)
	fetcher := diary.NewFetcher(diary.NewPostgresStore(pool), logger, cfg.Batch.DevelopmentFallback)
	storage := feedback.NewStorage(pool, logger)
	directory := users.NewDirectory(pool, logger)
	roster := persona.LoadActive(ctx, pool, logger)

	client := generator.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
	gen := generator.New(client, generator.Options{
		Model:             cfg.OpenAI.Model,
		MaxTokens:         cfg.OpenAI.MaxTokens,
		Temperature:       cfg.OpenAI.Temperature,
		MaxRetries:        cfg.Generation.MaxRetries,
		BaseDelay:         cfg.Generation.BaseDelay,
		MaxDelay:          cfg.Generation.MaxDelay,
		BackoffMultiplier: cfg.Generation.BackoffMultiplier,
		MinContentLength:  cfg.Generation.MinContentLength,
	}, logger)

	sched := scheduler.New(queueStore, fetcher, gen, storage, directory, roster, scheduler.Options{
		LookbackDays:        cfg.Batch.LookbackDays,
		PersonaPause:        cfg.Batch.PersonaPause,
		DevelopmentFallback: cfg.Batch.DevelopmentFallback,
	}, logger)

	result, err := sched.RunDailyBatch(ctx, reference)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	if runOutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Run %s finished in %s\n", result.RunID, result.Duration.Round(time.Millisecond))
	fmt.Printf("  processed: %d\n", result.Processed)
	fmt.Printf("  failed:    %d\n", result.Failed)
	if result.Degraded {
		fmt.Printf("  DEGRADED:  %v\n", result.DegradedReasons)
	}
	for _, user := range result.Users {
		status := "ok"
		if !user.Success {
			status = "FAILED"
		}
		fmt.Printf("  %-24s %-7s feedbacks=%d duplicates=%d\n", user.UserID, status, user.FeedbackCount, user.Duplicates)
		if user.Error != "" {
			fmt.Printf("    error: %s\n", user.Error)
		}
	}
	fmt.Printf("  queue: pending=%d processing=%d completed=%d failed=%d\n",
		result.QueueStats.Pending, result.QueueStats.Processing, result.QueueStats.Completed, result.QueueStats.Failed)
	return nil
}
