package sweepers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kokorolog/feedback-service/internal/queue"
)

// QueueSweeper periodically returns stale processing items to pending so
// a crashed batch run cannot strand work forever.
type QueueSweeper struct {
	store      *queue.Store
	logger     *zerolog.Logger
	interval   time.Duration
	threshold  time.Duration
	daysToKeep int
	stopChan   chan struct{}
}

// NewQueueSweeper creates a sweeper that runs every interval, recovers
// items stuck in processing longer than threshold, and deletes terminal
// items older than daysToKeep.
func NewQueueSweeper(store *queue.Store, logger *zerolog.Logger, interval, threshold time.Duration, daysToKeep int) *QueueSweeper {
	if daysToKeep <= 0 {
		daysToKeep = 30
	}
	return &QueueSweeper{
		store:      store,
		logger:     logger,
		interval:   interval,
		threshold:  threshold,
		daysToKeep: daysToKeep,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the periodic recovery sweep
func (s *QueueSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("threshold", s.threshold).
		Msg("Starting feedback queue sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Feedback queue sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Feedback queue sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to recover stale queue items")
			}
		}
	}
}

// Stop signals the sweeper to stop
func (s *QueueSweeper) Stop() {
	close(s.stopChan)
}

// Sweep runs one recovery pass.
func (s *QueueSweeper) Sweep(ctx context.Context) error {
	s.logger.Debug().Msg("Running stale queue item recovery")

	recovered, err := s.store.RecoverStale(ctx, s.threshold)
	if err != nil {
		return err
	}
	if recovered > 0 {
		s.logger.Info().Int("recovered", recovered).Msg("Recovered stale queue items")
	}

	deleted, err := s.store.CleanupOld(ctx, s.daysToKeep)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("Cleaned up old terminal queue items")
	}
	return nil
}
