package users

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Directory enumerates users eligible for the daily batch: anyone who
// wrote a diary or chatted within the lookback window.
type Directory struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewDirectory(pool *pgxpool.Pool, logger *zerolog.Logger) *Directory {
	return &Directory{pool: pool, logger: logger}
}

// ListActive returns distinct user IDs active within the lookback window.
func (d *Directory) ListActive(ctx context.Context, lookback time.Duration) ([]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT DISTINCT user_id FROM (
			SELECT user_id FROM diaries WHERE created_at >= NOW() - make_interval(secs => $1)
			UNION
			SELECT user_id FROM chat_sessions WHERE updated_at >= NOW() - make_interval(secs => $1)
		) active
		ORDER BY user_id`,
		lookback.Seconds())
	if err != nil {
		return nil, fmt.Errorf("listing active users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading active users: %w", err)
	}

	d.logger.Info().Int("count", len(userIDs)).Msg("Enumerated active users")
	return userIDs, nil
}
