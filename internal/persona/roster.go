package persona

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// LoadActive returns the active personas from the characters table in roster
// order. When the table is empty or unreachable it falls back to the
// built-in roster so a batch run can still proceed.
func LoadActive(ctx context.Context, pool *pgxpool.Pool, logger *zerolog.Logger) []Persona {
	personas, err := queryActive(ctx, pool)
	if err != nil {
		logger.Warn().Err(err).Msg("Characters table unavailable, using default roster")
		return DefaultRoster()
	}
	if len(personas) == 0 {
		logger.Warn().Msg("No active characters in database, using default roster")
		return DefaultRoster()
	}
	return personas
}

func queryActive(ctx context.Context, pool *pgxpool.Pool) ([]Persona, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, name, role, personality, speech_style, system_prompt, is_active
		FROM characters
		WHERE is_active = TRUE
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var personas []Persona
	for rows.Next() {
		var p Persona
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.Personality, &p.SpeechStyle, &p.SystemPrompt, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan character row: %w", err)
		}
		personas = append(personas, p)
	}
	return personas, rows.Err()
}
