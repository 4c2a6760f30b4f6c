package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kokorolog/feedback-service/internal/database"
	"github.com/kokorolog/feedback-service/internal/queue"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show feedback generation queue statistics",
	RunE:  showStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func showStats(cmd *cobra.Command, args []string) error {
	queueStore := queue.New(database.Pool(), logger, cfg.Batch.QueueMaxRetries)

	stats, err := queueStore.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("reading queue statistics: %w", err)
	}

	fmt.Printf("pending:    %d\n", stats.Pending)
	fmt.Printf("processing: %d\n", stats.Processing)
	fmt.Printf("completed:  %d\n", stats.Completed)
	fmt.Printf("failed:     %d\n", stats.Failed)
	fmt.Printf("total:      %d\n", stats.Total)
	return nil
}
