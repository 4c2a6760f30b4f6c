package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Feedback is one stored persona response, keyed by (user, persona,
// feedback date) so each persona writes at most once per diary day.
type Feedback struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	CharacterID  string    `json:"character_id"`
	DiaryID      int64     `json:"diary_id"`
	Content      string    `json:"content"`
	FeedbackDate string    `json:"feedback_date"`
	IsFavorite   bool      `json:"is_favorite"`
	Model        string    `json:"model"`
	TokensUsed   int       `json:"tokens_used"`
	GeneratedAt  time.Time `json:"generated_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// SaveInput carries one generated feedback for persistence.
type SaveInput struct {
	UserID       string
	CharacterID  string
	DiaryID      int64
	Content      string
	FeedbackDate string
	Model        string
	TokensUsed   int
	GeneratedAt  time.Time
}

// SaveSummary aggregates the outcome of a batch of saves.
type SaveSummary struct {
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Storage persists persona feedback rows.
type Storage struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewStorage(pool *pgxpool.Pool, logger *zerolog.Logger) *Storage {
	return &Storage{pool: pool, logger: logger}
}

// Save inserts one feedback row. A row already present for the same
// (user, persona, feedback date) is skipped, not an error; the bool
// reports whether the row was actually written.
func (s *Storage) Save(ctx context.Context, in SaveInput) (bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO feedbacks (user_id, character_id, diary_id, content, feedback_date, model, tokens_used, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, character_id, feedback_date) DO NOTHING
		RETURNING id`,
		in.UserID, in.CharacterID, in.DiaryID, in.Content, in.FeedbackDate, in.Model, in.TokensUsed, in.GeneratedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Debug().
			Str("user_id", in.UserID).
			Str("character_id", in.CharacterID).
			Str("feedback_date", in.FeedbackDate).
			Msg("Feedback already exists, skipping")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("saving feedback: %w", err)
	}
	return true, nil
}

// SaveMany saves a batch, counting saves, duplicates and failures. One
// failed row does not stop the rest.
func (s *Storage) SaveMany(ctx context.Context, inputs []SaveInput) SaveSummary {
	var summary SaveSummary
	for _, in := range inputs {
		saved, err := s.Save(ctx, in)
		switch {
		case err != nil:
			summary.Failed++
			s.logger.Error().Err(err).
				Str("user_id", in.UserID).
				Str("character_id", in.CharacterID).
				Msg("Failed to save feedback")
		case saved:
			summary.Saved++
		default:
			summary.Duplicates++
		}
	}
	return summary
}

// RecentByPersona returns up to limit most recent feedback texts one
// persona wrote for a user, oldest first, for prompt continuity.
func (s *Storage) RecentByPersona(ctx context.Context, userID, characterID string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT content FROM (
			SELECT content, created_at FROM feedbacks
			WHERE user_id = $1 AND character_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent ORDER BY created_at ASC`,
		userID, characterID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent feedbacks: %w", err)
	}
	defer rows.Close()

	var contents []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("scanning feedback content: %w", err)
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

// ListByUser returns a user's feedback rows, newest first.
func (s *Storage) ListByUser(ctx context.Context, userID string, limit int) ([]Feedback, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, character_id, diary_id, content, to_char(feedback_date, 'YYYY-MM-DD'),
		       is_favorite, model, tokens_used, generated_at, created_at
		FROM feedbacks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying feedbacks: %w", err)
	}
	defer rows.Close()

	var feedbacks []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.CharacterID, &f.DiaryID, &f.Content, &f.FeedbackDate,
			&f.IsFavorite, &f.Model, &f.TokensUsed, &f.GeneratedAt, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		feedbacks = append(feedbacks, f)
	}
	return feedbacks, rows.Err()
}

// SetFavorite toggles the favorite flag and reports whether the row exists.
func (s *Storage) SetFavorite(ctx context.Context, id int64, favorite bool) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE feedbacks SET is_favorite = $2 WHERE id = $1`, id, favorite)
	if err != nil {
		return false, fmt.Errorf("updating favorite flag: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
