package generator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/kokorolog/feedback-service/internal/diary"
	"github.com/kokorolog/feedback-service/internal/persona"
)

// Options tunes the model call and the retry policy.
type Options struct {
	Model             string
	MaxTokens         int
	Temperature       float64
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	MinContentLength  int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Model:             "gpt-4o",
		MaxTokens:         200,
		Temperature:       0.8,
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		MinContentLength:  20,
	}
}

// GeneratedFeedback is one successful persona response for a diary entry.
type GeneratedFeedback struct {
	PersonaID   string
	PersonaName string
	Content     string
	GeneratedAt time.Time
	PromptUsed  string
	TokensUsed  int
	Model       string
}

// Generator produces persona feedback with bounded retries on transient
// failures.
type Generator struct {
	client CompletionClient
	opts   Options
	logger *zerolog.Logger
}

func New(client CompletionClient, opts Options, logger *zerolog.Logger) *Generator {
	if opts.BackoffMultiplier <= 0 {
		opts.BackoffMultiplier = 2.0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	return &Generator{client: client, opts: opts, logger: logger}
}

// backoffDelay returns the wait before retrying after the given zero-based
// attempt, capped at MaxDelay.
func (g *Generator) backoffDelay(attempt int) time.Duration {
	delay := float64(g.opts.BaseDelay) * math.Pow(g.opts.BackoffMultiplier, float64(attempt))
	if capped := float64(g.opts.MaxDelay); delay > capped {
		delay = capped
	}
	return time.Duration(delay)
}

// Generate asks one persona for feedback on one diary entry. Transient
// failures retry up to MaxRetries times with exponential backoff;
// non-retryable failures and exhausted retries return a *GenerationError.
func (g *Generator) Generate(ctx context.Context, p persona.Persona, entry diary.Entry, previousFeedbacks []string) (*GeneratedFeedback, error) {
	prompt := BuildPrompt(p, entry, previousFeedbacks)

	var lastErr error
	var lastKind Kind
	var attemptsMade int
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		// Caller cancellation is not an API failure; pass the bare
		// context error through so callers can tell the two apart.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation aborted: %w", err)
		}

		resp, err := g.client.Complete(ctx, CompletionRequest{
			Model:        g.opts.Model,
			SystemPrompt: prompt,
			MaxTokens:    g.opts.MaxTokens,
			Temperature:  g.opts.Temperature,
		})
		if err == nil {
			if len([]rune(resp.Content)) < g.opts.MinContentLength {
				return nil, &GenerationError{
					Kind:     KindUnknown,
					Attempts: attempt + 1,
					Err:      fmt.Errorf("generated feedback too short (%d chars)", len([]rune(resp.Content))),
				}
			}
			return &GeneratedFeedback{
				PersonaID:   p.ID,
				PersonaName: p.Name,
				Content:     resp.Content,
				GeneratedAt: time.Now().UTC(),
				PromptUsed:  prompt,
				TokensUsed:  resp.TokensUsed,
				Model:       g.opts.Model,
			}, nil
		}

		lastErr = err
		lastKind = Classify(err)
		attemptsMade = attempt + 1
		if !lastKind.Retryable() || attempt == g.opts.MaxRetries {
			break
		}

		delay := g.backoffDelay(attempt)
		g.logger.Warn().
			Str("persona_id", p.ID).
			Str("kind", string(lastKind)).
			Int("attempt", attempt+1).
			Dur("retry_in", delay).
			Err(err).
			Msg("Generation attempt failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("generation aborted: %w", ctx.Err())
		}
	}

	return nil, &GenerationError{Kind: lastKind, Attempts: attemptsMade, Err: lastErr}
}
