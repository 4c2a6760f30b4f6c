package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kokorolog/feedback-service/internal/diary"
	"github.com/kokorolog/feedback-service/internal/feedback"
	"github.com/kokorolog/feedback-service/internal/generator"
	"github.com/kokorolog/feedback-service/internal/persona"
	"github.com/kokorolog/feedback-service/internal/queue"
	"github.com/kokorolog/feedback-service/internal/timewindow"
)

// Queue is the persistence-backed work queue the scheduler drains.
type Queue interface {
	Enqueue(ctx context.Context, userID string, priority int) (*queue.Item, error)
	DequeueNext(ctx context.Context) (*queue.Item, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errorMessage string) (bool, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// DiaryFetcher loads a user's diary entries for a resolved window.
type DiaryFetcher interface {
	FetchWindow(ctx context.Context, userID string, window timewindow.Window) (diary.FetchResult, error)
}

// FeedbackGenerator produces one persona's feedback for one entry.
type FeedbackGenerator interface {
	Generate(ctx context.Context, p persona.Persona, entry diary.Entry, previousFeedbacks []string) (*generator.GeneratedFeedback, error)
}

// FeedbackStore persists generated feedback and serves persona memory.
type FeedbackStore interface {
	Save(ctx context.Context, in feedback.SaveInput) (bool, error)
	RecentByPersona(ctx context.Context, userID, characterID string, limit int) ([]string, error)
}

// UserDirectory enumerates users eligible for a run.
type UserDirectory interface {
	ListActive(ctx context.Context, lookback time.Duration) ([]string, error)
}

// UserOutcome is one user's result within a run.
type UserOutcome struct {
	UserID        string   `json:"user_id"`
	Success       bool     `json:"success"`
	FeedbackCount int      `json:"feedback_count"`
	Duplicates    int      `json:"duplicates"`
	Degraded      bool     `json:"degraded,omitempty"`
	PersonaErrors []string `json:"persona_errors,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// RunResult is the aggregate report of one batch invocation.
type RunResult struct {
	RunID           string        `json:"run_id"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Processed       int           `json:"processed"`
	Failed          int           `json:"failed"`
	Users           []UserOutcome `json:"users"`
	QueueStats      queue.Stats   `json:"queue_stats"`
	Degraded        bool          `json:"degraded"`
	DegradedReasons []string      `json:"degraded_reasons,omitempty"`
}

// Options tunes one scheduler instance.
type Options struct {
	LookbackDays int
	PersonaPause time.Duration
	// DevelopmentFallback substitutes a placeholder user when enumeration
	// fails, so local runs without seeded data still produce a report. In
	// production the enumeration failure is fatal for the run.
	DevelopmentFallback bool
}

// Scheduler drives the daily feedback batch: enumerate, enqueue, drain,
// report. A single scheduler run processes one queue item at a time and
// one persona call at a time.
type Scheduler struct {
	queue     Queue
	fetcher   DiaryFetcher
	generator FeedbackGenerator
	storage   FeedbackStore
	directory UserDirectory
	roster    []persona.Persona
	opts      Options
	limiter   *rate.Limiter
	logger    *zerolog.Logger
}

func New(q Queue, fetcher DiaryFetcher, gen FeedbackGenerator, storage FeedbackStore, directory UserDirectory, roster []persona.Persona, opts Options, logger *zerolog.Logger) *Scheduler {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 14
	}
	if opts.PersonaPause <= 0 {
		opts.PersonaPause = 500 * time.Millisecond
	}
	return &Scheduler{
		queue:     q,
		fetcher:   fetcher,
		generator: gen,
		storage:   storage,
		directory: directory,
		roster:    roster,
		opts:      opts,
		limiter:   rate.NewLimiter(rate.Every(opts.PersonaPause), 1),
		logger:    logger,
	}
}

// RunDailyBatch executes one full batch cycle. referenceTime anchors the
// diary window; pass the zero time to use the current instant. Only a
// failure to determine the active-user set is fatal; every later failure
// is contained to one user or one persona and surfaces in the report.
func (s *Scheduler) RunDailyBatch(ctx context.Context, referenceTime time.Time) (*RunResult, error) {
	if referenceTime.IsZero() {
		referenceTime = time.Now()
	}
	start := time.Now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
	}
	logger := s.logger.With().Str("run_id", result.RunID).Logger()
	logger.Info().Time("reference", referenceTime).Msg("Starting daily feedback batch")
	runsStarted.Inc()

	// Enumerating.
	userIDs, err := s.directory.ListActive(ctx, time.Duration(s.opts.LookbackDays)*24*time.Hour)
	if err != nil {
		if !s.opts.DevelopmentFallback {
			runsFailed.Inc()
			return nil, fmt.Errorf("enumerating active users: %w", err)
		}
		logger.Warn().Err(err).Msg("User enumeration failed, using development placeholder")
		userIDs = []string{"dev-user-001"}
		s.degrade(result, "user enumeration failed, placeholder user substituted")
	}
	logger.Info().Int("users", len(userIDs)).Msg("Enumerated active users")

	// Enqueuing. A queue outage switches the run to an in-memory drain of
	// the user list instead of aborting.
	inMemory := false
	for _, userID := range userIDs {
		if _, err := s.queue.Enqueue(ctx, userID, 0); err != nil {
			var dup *queue.DuplicateEnqueueError
			if errors.As(err, &dup) {
				logger.Debug().Str("user_id", userID).Msg("User already queued")
				continue
			}
			var unavailable *queue.UnavailableError
			if errors.As(err, &unavailable) {
				logger.Error().Err(err).Msg("Queue unavailable, draining user list in memory")
				s.degrade(result, "queue unavailable, processed in memory without persistence")
				inMemory = true
				break
			}
			logger.Error().Err(err).Str("user_id", userID).Msg("Enqueue failed")
			s.degrade(result, fmt.Sprintf("enqueue failed for user %s", userID))
		}
	}

	// Draining.
	if inMemory {
		s.drainInMemory(ctx, &logger, result, userIDs, referenceTime)
	} else {
		s.drainQueue(ctx, &logger, result, referenceTime)
	}

	// Reporting.
	if stats, err := s.queue.Stats(ctx); err == nil {
		result.QueueStats = stats
	} else if !inMemory {
		logger.Warn().Err(err).Msg("Could not snapshot queue statistics")
	}
	result.Duration = time.Since(start)
	runDuration.Observe(result.Duration.Seconds())
	logger.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Bool("degraded", result.Degraded).
		Dur("duration", result.Duration).
		Msg("Daily feedback batch finished")
	return result, nil
}

func (s *Scheduler) drainQueue(ctx context.Context, logger *zerolog.Logger, result *RunResult, referenceTime time.Time) {
	for {
		if ctx.Err() != nil {
			s.degrade(result, "run cancelled before queue drained")
			return
		}
		item, err := s.queue.DequeueNext(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Dequeue failed, stopping drain")
			s.degrade(result, "dequeue failed mid-drain")
			return
		}
		if item == nil {
			return
		}

		outcome := s.processUser(ctx, logger, item.UserID, referenceTime)
		if outcome.Degraded {
			s.degrade(result, fmt.Sprintf("diary fetch degraded for user %s", item.UserID))
		}
		if outcome.Error == "" {
			if err := s.queue.MarkCompleted(ctx, item.ID); err != nil {
				logger.Error().Err(err).Str("item_id", item.ID).Msg("Could not mark item completed")
			}
			outcome.Success = true
			result.Processed++
			usersProcessed.Inc()
			result.Users = append(result.Users, outcome)
			continue
		}

		shouldRetry, err := s.queue.MarkFailed(ctx, item.ID, outcome.Error)
		if err != nil {
			logger.Error().Err(err).Str("item_id", item.ID).Msg("Could not mark item failed")
		}
		if shouldRetry {
			logger.Warn().Str("user_id", item.UserID).Str("reason", outcome.Error).Msg("User processing failed, re-queued")
			continue
		}
		logger.Error().Str("user_id", item.UserID).Str("reason", outcome.Error).Msg("User processing failed permanently")
		result.Failed++
		usersFailed.Inc()
		result.Users = append(result.Users, outcome)
	}
}

func (s *Scheduler) drainInMemory(ctx context.Context, logger *zerolog.Logger, result *RunResult, userIDs []string, referenceTime time.Time) {
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			s.degrade(result, "run cancelled before user list drained")
			return
		}
		outcome := s.processUser(ctx, logger, userID, referenceTime)
		if outcome.Degraded {
			s.degrade(result, fmt.Sprintf("diary fetch degraded for user %s", userID))
		}
		if outcome.Error == "" {
			outcome.Success = true
			result.Processed++
			usersProcessed.Inc()
		} else {
			result.Failed++
			usersFailed.Inc()
		}
		result.Users = append(result.Users, outcome)
	}
}

// processUser handles one user's full window: resolve, fetch, generate per
// entry and persona, store. Persona-level failures are contained; the
// outcome carries a non-empty Error only when nothing could be produced
// despite entries being present, or when the run context ended.
func (s *Scheduler) processUser(ctx context.Context, logger *zerolog.Logger, userID string, referenceTime time.Time) UserOutcome {
	outcome := UserOutcome{UserID: userID}
	window := timewindow.Resolve(referenceTime)

	fetched, err := s.fetcher.FetchWindow(ctx, userID, window)
	if err != nil {
		outcome.Error = fmt.Sprintf("fetching diary entries: %v", err)
		return outcome
	}
	if fetched.Degraded {
		outcome.Degraded = true
	}
	if len(fetched.Entries) == 0 {
		logger.Info().Str("user_id", userID).Msg("No diary entries in window, nothing to generate")
		return outcome
	}

	for _, entry := range fetched.Entries {
		for _, p := range s.roster {
			if err := s.limiter.Wait(ctx); err != nil {
				outcome.Error = fmt.Sprintf("run cancelled: %v", err)
				return outcome
			}

			previous, err := s.storage.RecentByPersona(ctx, userID, p.ID, 2)
			if err != nil {
				logger.Warn().Err(err).Str("character_id", p.ID).Msg("Could not load persona memory, continuing without")
				previous = nil
			}

			generated, err := s.generator.Generate(ctx, p, entry, previous)
			if err != nil {
				// API failures arrive as *GenerationError; anything else
				// means the run context ended and the drain should stop.
				var genErr *generator.GenerationError
				if !errors.As(err, &genErr) {
					outcome.Error = fmt.Sprintf("run cancelled: %v", err)
					return outcome
				}
				personaFailures.WithLabelValues(string(genErr.Kind)).Inc()
				outcome.PersonaErrors = append(outcome.PersonaErrors, fmt.Sprintf("%s: %v", p.Name, err))
				logger.Warn().Err(err).Str("user_id", userID).Str("character_id", p.ID).Msg("Persona generation failed")
				continue
			}

			saved, err := s.storage.Save(ctx, feedback.SaveInput{
				UserID:       userID,
				CharacterID:  p.ID,
				DiaryID:      entry.ID,
				Content:      generated.Content,
				FeedbackDate: timewindow.FeedbackDate(entry.CreatedAt),
				Model:        generated.Model,
				TokensUsed:   generated.TokensUsed,
				GeneratedAt:  generated.GeneratedAt,
			})
			if err != nil {
				outcome.PersonaErrors = append(outcome.PersonaErrors, fmt.Sprintf("%s: saving feedback: %v", p.Name, err))
				logger.Error().Err(err).Str("user_id", userID).Str("character_id", p.ID).Msg("Could not save feedback")
				continue
			}
			if saved {
				outcome.FeedbackCount++
				feedbackGenerated.Inc()
			} else {
				outcome.Duplicates++
				feedbackDuplicates.Inc()
			}
		}
	}

	if outcome.FeedbackCount == 0 && outcome.Duplicates == 0 && len(outcome.PersonaErrors) > 0 {
		outcome.Error = fmt.Sprintf("all persona generations failed: %s", strings.Join(outcome.PersonaErrors, "; "))
	}
	return outcome
}

func (s *Scheduler) degrade(result *RunResult, reason string) {
	result.Degraded = true
	result.DegradedReasons = append(result.DegradedReasons, reason)
}
