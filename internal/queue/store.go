package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const itemColumns = `
	id, user_id, status, priority, retry_count, max_retries,
	created_at, started_at, completed_at, error_message, metadata`

// Store is the persistent feedback generation queue backed by the
// feedback_generation_queue table.
type Store struct {
	pool       *pgxpool.Pool
	logger     *zerolog.Logger
	maxRetries int
}

// New creates a queue store. maxRetries caps the pending->processing->pending
// retry cycle for newly enqueued items.
func New(pool *pgxpool.Pool, logger *zerolog.Logger, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Store{pool: pool, logger: logger, maxRetries: maxRetries}
}

// Enqueue inserts a pending item for the user. It fails with
// *DuplicateEnqueueError when the user already has a pending or processing
// item.
func (s *Store) Enqueue(ctx context.Context, userID string, priority int) (*Item, error) {
	var existingStatus Status
	err := s.pool.QueryRow(ctx, `
		SELECT status FROM feedback_generation_queue
		WHERE user_id = $1 AND status IN ('pending', 'processing')
		LIMIT 1
	`, userID).Scan(&existingStatus)
	switch {
	case err == nil:
		return nil, &DuplicateEnqueueError{UserID: userID, Status: existingStatus}
	case errors.Is(err, pgx.ErrNoRows):
		// No active item, proceed with insert
	default:
		return nil, &UnavailableError{Op: "enqueue", Err: err}
	}

	metadata, _ := json.Marshal(map[string]any{
		"enqueued_at": time.Now().UTC().Format(time.RFC3339),
	})

	row := s.pool.QueryRow(ctx, `
		INSERT INTO feedback_generation_queue
			(user_id, status, priority, retry_count, max_retries, metadata)
		VALUES ($1, 'pending', $2, 0, $3, $4)
		RETURNING`+itemColumns, userID, priority, s.maxRetries, metadata)

	item, err := scanItem(row)
	if err != nil {
		// The partial unique index backstops the check above under
		// concurrent enqueues.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, &DuplicateEnqueueError{UserID: userID, Status: StatusPending}
		}
		return nil, &UnavailableError{Op: "enqueue", Err: err}
	}

	s.logger.Info().
		Str("component", "queue").
		Str("user_id", userID).
		Int("priority", priority).
		Str("item_id", item.ID).
		Msg("User enqueued")
	return item, nil
}

// DequeueNext claims the pending item with the highest priority, breaking
// ties by oldest created_at. The pending->processing transition is
// conditioned on the row still being pending; if a concurrent claimant won
// the race, DequeueNext returns (nil, nil) and the caller retries the
// selection. (nil, nil) is also returned when no pending items exist.
func (s *Store) DequeueNext(ctx context.Context) (*Item, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM feedback_generation_queue
		WHERE status = 'pending'
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &UnavailableError{Op: "dequeue", Err: err}
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE feedback_generation_queue
		SET status = 'processing', started_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING`+itemColumns, id)

	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the claim race; not an error.
		s.logger.Debug().Str("item_id", id).Msg("Queue item claimed by another worker")
		return nil, nil
	}
	if err != nil {
		return nil, &UnavailableError{Op: "dequeue", Err: err}
	}

	s.logger.Info().
		Str("component", "queue").
		Str("item_id", item.ID).
		Str("user_id", item.UserID).
		Msg("Claimed queue item")
	return item, nil
}

// MarkCompleted transitions an item to completed. Calling it on an already
// completed item is a no-op.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE feedback_generation_queue
		SET status = 'completed', completed_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return &UnavailableError{Op: "mark completed", Err: err}
	}
	return nil
}

// MarkFailed records a processing failure. If the item has retries left it
// returns to pending with retry_count incremented and started_at cleared,
// and MarkFailed returns true; otherwise the item moves to the terminal
// failed state and MarkFailed returns false.
func (s *Store) MarkFailed(ctx context.Context, id, errorMessage string) (bool, error) {
	var retryCount, maxRetries int
	err := s.pool.QueryRow(ctx, `
		SELECT retry_count, max_retries FROM feedback_generation_queue
		WHERE id = $1
	`, id).Scan(&retryCount, &maxRetries)
	if err != nil {
		return false, &UnavailableError{Op: "mark failed", Err: err}
	}

	newRetryCount := retryCount + 1
	shouldRetry := newRetryCount <= maxRetries

	if shouldRetry {
		_, err = s.pool.Exec(ctx, `
			UPDATE feedback_generation_queue
			SET status = 'pending', retry_count = $2, error_message = $3,
			    started_at = NULL
			WHERE id = $1
		`, id, newRetryCount, errorMessage)
	} else {
		_, err = s.pool.Exec(ctx, `
			UPDATE feedback_generation_queue
			SET status = 'failed', retry_count = $2, error_message = $3,
			    completed_at = NOW()
			WHERE id = $1
		`, id, newRetryCount, errorMessage)
	}
	if err != nil {
		return false, &UnavailableError{Op: "mark failed", Err: err}
	}

	if shouldRetry {
		s.logger.Warn().
			Str("item_id", id).
			Int("retry_count", newRetryCount).
			Str("error", errorMessage).
			Msg("Queue item re-queued for retry")
	} else {
		s.logger.Error().
			Str("item_id", id).
			Int("attempts", newRetryCount).
			Str("error", errorMessage).
			Msg("Queue item failed permanently")
	}
	return shouldRetry, nil
}

// Stats returns point-in-time counts per status. The snapshot is
// non-transactional.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM feedback_generation_queue
		GROUP BY status
	`)
	if err != nil {
		return Stats{}, &UnavailableError{Op: "stats", Err: err}
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, &UnavailableError{Op: "stats", Err: err}
		}
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	if rows.Err() != nil {
		return Stats{}, &UnavailableError{Op: "stats", Err: rows.Err()}
	}
	return stats, nil
}

// RecoverStale fails items left in processing longer than threshold back
// through the normal retry path. Used by the sweeper and at startup after an
// interrupted run.
func (s *Store) RecoverStale(ctx context.Context, threshold time.Duration) (int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM feedback_generation_queue
		WHERE status = 'processing' AND started_at < NOW() - make_interval(secs => $1)
	`, threshold.Seconds())
	if err != nil {
		return 0, &UnavailableError{Op: "recover stale", Err: err}
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, &UnavailableError{Op: "recover stale", Err: err}
		}
		ids = append(ids, id)
	}
	rows.Close()
	if rows.Err() != nil {
		return 0, &UnavailableError{Op: "recover stale", Err: rows.Err()}
	}

	recovered := 0
	for _, id := range ids {
		if _, err := s.MarkFailed(ctx, id, "processing interrupted"); err != nil {
			s.logger.Error().Err(err).Str("item_id", id).Msg("Failed to recover stale item")
			continue
		}
		recovered++
	}
	return recovered, nil
}

// CleanupOld deletes terminal items older than daysToKeep. Retention is an
// operational concern; the scheduler never deletes rows.
func (s *Store) CleanupOld(ctx context.Context, daysToKeep int) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM feedback_generation_queue
		WHERE status IN ('completed', 'failed')
		  AND created_at < NOW() - make_interval(days => $1)
	`, daysToKeep)
	if err != nil {
		return 0, &UnavailableError{Op: "cleanup", Err: err}
	}
	return int(tag.RowsAffected()), nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	var metadata []byte
	if err := row.Scan(
		&item.ID, &item.UserID, &item.Status, &item.Priority,
		&item.RetryCount, &item.MaxRetries, &item.CreatedAt,
		&item.StartedAt, &item.CompletedAt, &item.ErrorMessage, &metadata,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &item.Metadata)
	}
	return &item, nil
}
