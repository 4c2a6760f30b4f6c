package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsStarted tracks batch invocations, successful or not.
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_batch_runs_total",
		Help: "Total number of daily batch runs started",
	})

	// runsFailed tracks runs that failed before draining could begin.
	runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_batch_runs_failed_total",
		Help: "Total number of daily batch runs that failed fatally",
	})

	// runDuration tracks end-to-end batch wall-clock time.
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_batch_run_duration_seconds",
		Help:    "Wall-clock duration of daily batch runs",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})

	// usersProcessed tracks users completing successfully.
	usersProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_batch_users_processed_total",
		Help: "Total number of users processed successfully",
	})

	// usersFailed tracks users failing permanently after retries.
	usersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_batch_users_failed_total",
		Help: "Total number of users that failed permanently",
	})

	// feedbackGenerated tracks stored feedback rows.
	feedbackGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_generated_total",
		Help: "Total number of feedback texts generated and stored",
	})

	// feedbackDuplicates tracks saves skipped by the per-date dedup.
	feedbackDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_duplicates_skipped_total",
		Help: "Total number of feedback saves skipped as duplicates",
	})

	// personaFailures tracks generation failures by classified kind.
	personaFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_persona_failures_total",
		Help: "Total number of persona generation failures by error kind",
	}, []string{"kind"}) // kind: rate_limit, server_error, timeout, network_error, auth_error, bad_request, unknown
)
