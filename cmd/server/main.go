package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kokorolog/feedback-service/config"
	"github.com/kokorolog/feedback-service/internal/database"
	"github.com/kokorolog/feedback-service/internal/diary"
	"github.com/kokorolog/feedback-service/internal/feedback"
	"github.com/kokorolog/feedback-service/internal/generator"
	"github.com/kokorolog/feedback-service/internal/handlers"
	"github.com/kokorolog/feedback-service/internal/middleware"
	"github.com/kokorolog/feedback-service/internal/persona"
	"github.com/kokorolog/feedback-service/internal/queue"
	"github.com/kokorolog/feedback-service/internal/scheduler"
	"github.com/kokorolog/feedback-service/internal/sweepers"
	"github.com/kokorolog/feedback-service/internal/telemetry"
	"github.com/kokorolog/feedback-service/internal/users"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting feedback service")

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	telemetryCfg := telemetry.GetConfigFromEnv()
	if cfg.Telemetry.Enabled {
		telemetryCfg.Enabled = true
	}
	if cfg.Telemetry.Endpoint != "" {
		telemetryCfg.Endpoint = cfg.Telemetry.Endpoint
	}
	telemetryCleanup, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry init failed, continuing without")
		telemetryCleanup = func(context.Context) error { return nil }
	}

	queueStore := queue.New(database.Pool(), logger, cfg.Batch.QueueMaxRetries)

	// Items left in processing by a crashed run go back to pending before
	// anything else starts.
	if recovered, err := queueStore.RecoverStale(ctx, 0); err != nil {
		logger.Warn().Err(err).Msg("Failed to recover interrupted queue items")
	} else if recovered > 0 {
		logger.Info().Int("recovered", recovered).Msg("Recovered interrupted queue items")
	}

	queueSweeper := sweepers.NewQueueSweeper(queueStore, logger, 5*time.Minute, 30*time.Minute, 30)

	fetcher := diary.NewFetcher(diary.NewPostgresStore(database.Pool()), logger, cfg.Batch.DevelopmentFallback)
	storage := feedback.NewStorage(database.Pool(), logger)
	directory := users.NewDirectory(database.Pool(), logger)
	roster := persona.LoadActive(ctx, database.Pool(), logger)

	client := generator.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
	gen := generator.New(client, generator.Options{
		Model:             cfg.OpenAI.Model,
		MaxTokens:         cfg.OpenAI.MaxTokens,
		Temperature:       cfg.OpenAI.Temperature,
		MaxRetries:        cfg.Generation.MaxRetries,
		BaseDelay:         cfg.Generation.BaseDelay,
		MaxDelay:          cfg.Generation.MaxDelay,
		BackoffMultiplier: cfg.Generation.BackoffMultiplier,
		MinContentLength:  cfg.Generation.MinContentLength,
	}, logger)

	sched := scheduler.New(queueStore, fetcher, gen, storage, directory, roster, scheduler.Options{
		LookbackDays:        cfg.Batch.LookbackDays,
		PersonaPause:        cfg.Batch.PersonaPause,
		DevelopmentFallback: cfg.Batch.DevelopmentFallback,
	}, logger)

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	publicRateLimit := middleware.RateLimitMiddleware()
	router.GET("/health", publicRateLimit, handlers.HealthCheck)
	router.GET("/metrics", publicRateLimit, gin.WrapH(promhttp.Handler()))

	internal := router.Group("/internal")
	internal.Use(middleware.CronAuthMiddleware())
	internal.Use(middleware.ServiceRateLimitMiddleware(10, 20))
	{
		internal.POST("/cron/daily-feedback", handlers.TriggerDailyBatch(sched, logger))
		internal.GET("/queue/stats", handlers.QueueStats(queueStore))
		internal.GET("/feedbacks", handlers.ListFeedbacks(storage))
		internal.POST("/feedbacks/:id/favorite", handlers.SetFeedbackFavorite(storage))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		queueSweeper.Start(gCtx)
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("Shutting down server...")
		queueSweeper.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := telemetryCleanup(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Server error")
	}
	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "feedback-service").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
