package diary

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kokorolog/feedback-service/internal/timewindow"
)

// Store reads diary entries from the backing store.
type Store interface {
	// Query returns the user's entries with created_at in [startUTC, endUTC),
	// ordered oldest-first.
	Query(ctx context.Context, userID string, startUTC, endUTC time.Time) ([]Entry, error)
}

// PostgresStore reads diaries from the diaries table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a diary store over the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Query(ctx context.Context, userID string, startUTC, endUTC time.Time) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, content, mood, created_at
		FROM diaries
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`, userID, startUTC, endUTC)
	if err != nil {
		return nil, fmt.Errorf("query diaries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &e.Mood, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diary row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FetchResult carries the entries found in a window together with the
// degraded-mode marker.
type FetchResult struct {
	Entries    []Entry
	TotalFound int
	Window     timewindow.Window
	// Degraded is set when the backing store was unavailable and a fallback
	// result was substituted. Degraded results must never be mistaken for
	// "the user wrote nothing".
	Degraded bool
}

// Fetcher loads a user's diary entries for a resolved time window. When the
// backing store is unavailable it degrades instead of aborting the caller's
// batch: in development-fallback mode it substitutes sample entries, in
// production it returns an empty result and logs prominently.
type Fetcher struct {
	store       Store
	logger      *zerolog.Logger
	devFallback bool
}

// NewFetcher creates a fetcher. devFallback enables the sample-entry
// substitute; leave it off in production so fabricated content can never
// enter the feedback corpus.
func NewFetcher(store Store, logger *zerolog.Logger, devFallback bool) *Fetcher {
	return &Fetcher{store: store, logger: logger, devFallback: devFallback}
}

// FetchWindow returns the user's entries inside the window.
func (f *Fetcher) FetchWindow(ctx context.Context, userID string, window timewindow.Window) (FetchResult, error) {
	entries, err := f.store.Query(ctx, userID, window.Start, window.End)
	if err != nil {
		if f.devFallback {
			f.logger.Warn().
				Err(err).
				Str("user_id", userID).
				Msg("Diary store unavailable, substituting sample entries (development fallback)")
			return FetchResult{
				Entries:    sampleEntries(userID, window),
				TotalFound: 2,
				Window:     window,
				Degraded:   true,
			}, nil
		}

		f.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("Diary store unavailable, returning empty degraded result")
		return FetchResult{Window: window, Degraded: true}, nil
	}

	f.logger.Debug().
		Str("user_id", userID).
		Int("entries", len(entries)).
		Time("window_start", window.StartJST).
		Time("window_end", window.EndJST).
		Msg("Fetched diary entries for window")

	return FetchResult{
		Entries:    entries,
		TotalFound: len(entries),
		Window:     window,
	}, nil
}

// sampleEntries fabricates two plausible entries inside the window for
// development environments without a diaries table.
func sampleEntries(userID string, window timewindow.Window) []Entry {
	return []Entry{
		{
			ID:        time.Now().UnixMilli(),
			UserID:    userID,
			Content:   "今日は友達とカフェで楽しい時間を過ごしました。新しいプロジェクトについて話し合い、とても刺激的でした。",
			Mood:      MoodHappy,
			CreatedAt: window.End.Add(-8 * time.Hour),
		},
		{
			ID:        time.Now().UnixMilli() + 1,
			UserID:    userID,
			Content:   "仕事で少し疲れましたが、家族との夕食で心が癒されました。明日も頑張ろうと思います。",
			Mood:      MoodNeutral,
			CreatedAt: window.End.Add(-5 * time.Hour),
		},
	}
}
