package queue

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kokorolog/feedback-service/migrations"
)

func setupTestStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp").
					WithStartupTimeout(60*time.Second),
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(1).
					WithStartupTimeout(60*time.Second),
			),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := migrations.FS.ReadFile("000001_create_feedback_queue.up.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	logger := zerolog.Nop()
	return New(pool, &logger, 3), pool
}

func TestStoreQueueLifecycle(t *testing.T) {
	store, pool := setupTestStore(t)
	ctx := context.Background()

	truncate := func() {
		_, err := pool.Exec(ctx, `TRUNCATE feedback_generation_queue`)
		require.NoError(t, err)
	}

	t.Run("DuplicateEnqueueRejected", func(t *testing.T) {
		truncate()

		item, err := store.Enqueue(ctx, "user-1", 0)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, item.Status)

		_, err = store.Enqueue(ctx, "user-1", 0)
		var dup *DuplicateEnqueueError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "user-1", dup.UserID)

		// A completed item no longer blocks re-enqueue.
		require.NoError(t, store.MarkCompleted(ctx, item.ID))
		_, err = store.Enqueue(ctx, "user-1", 0)
		require.NoError(t, err)
	})

	t.Run("DequeueOrdering", func(t *testing.T) {
		truncate()

		_, err := store.Enqueue(ctx, "user-low-first", 0)
		require.NoError(t, err)
		_, err = store.Enqueue(ctx, "user-low-second", 0)
		require.NoError(t, err)
		_, err = store.Enqueue(ctx, "user-high", 5)
		require.NoError(t, err)

		var order []string
		for {
			item, err := store.DequeueNext(ctx)
			require.NoError(t, err)
			if item == nil {
				break
			}
			assert.Equal(t, StatusProcessing, item.Status)
			assert.NotNil(t, item.StartedAt)
			order = append(order, item.UserID)
			require.NoError(t, store.MarkCompleted(ctx, item.ID))
		}
		assert.Equal(t, []string{"user-high", "user-low-first", "user-low-second"}, order)
	})

	t.Run("DequeueClaimsOnce", func(t *testing.T) {
		truncate()

		_, err := store.Enqueue(ctx, "user-1", 0)
		require.NoError(t, err)

		first, err := store.DequeueNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)

		// The claimed item is not handed out again.
		second, err := store.DequeueNext(ctx)
		require.NoError(t, err)
		assert.Nil(t, second)
	})

	t.Run("MarkFailedRetriesUntilExhausted", func(t *testing.T) {
		truncate()

		item, err := store.Enqueue(ctx, "user-1", 0)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			claimed, err := store.DequeueNext(ctx)
			require.NoError(t, err)
			require.NotNil(t, claimed)

			shouldRetry, err := store.MarkFailed(ctx, claimed.ID, "generation failed")
			require.NoError(t, err)
			assert.True(t, shouldRetry, "attempt %d should be retryable", i+1)
		}

		claimed, err := store.DequeueNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, 3, claimed.RetryCount)

		shouldRetry, err := store.MarkFailed(ctx, claimed.ID, "generation failed")
		require.NoError(t, err)
		assert.False(t, shouldRetry)

		var status string
		var completedAt *time.Time
		var errorMessage *string
		err = pool.QueryRow(ctx, `SELECT status, completed_at, error_message FROM feedback_generation_queue WHERE id = $1`, item.ID).
			Scan(&status, &completedAt, &errorMessage)
		require.NoError(t, err)
		assert.Equal(t, "failed", status)
		assert.NotNil(t, completedAt)
		require.NotNil(t, errorMessage)
		assert.Equal(t, "generation failed", *errorMessage)
	})

	t.Run("MarkCompletedIsIdempotent", func(t *testing.T) {
		truncate()

		item, err := store.Enqueue(ctx, "user-1", 0)
		require.NoError(t, err)

		require.NoError(t, store.MarkCompleted(ctx, item.ID))
		require.NoError(t, store.MarkCompleted(ctx, item.ID))
	})

	t.Run("Stats", func(t *testing.T) {
		truncate()

		_, err := store.Enqueue(ctx, "user-1", 0)
		require.NoError(t, err)
		_, err = store.Enqueue(ctx, "user-2", 0)
		require.NoError(t, err)
		claimed, err := store.DequeueNext(ctx)
		require.NoError(t, err)
		require.NoError(t, store.MarkCompleted(ctx, claimed.ID))

		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Pending)
		assert.Equal(t, 1, stats.Completed)
		assert.Equal(t, 2, stats.Total)
	})

	t.Run("RecoverStale", func(t *testing.T) {
		truncate()

		_, err := store.Enqueue(ctx, "user-1", 0)
		require.NoError(t, err)
		claimed, err := store.DequeueNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, claimed)

		// Backdate the claim so it counts as stale.
		_, err = pool.Exec(ctx, `UPDATE feedback_generation_queue SET started_at = NOW() - INTERVAL '1 hour' WHERE id = $1`, claimed.ID)
		require.NoError(t, err)

		recovered, err := store.RecoverStale(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, recovered)

		item, err := store.DequeueNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "user-1", item.UserID)
	})
}
