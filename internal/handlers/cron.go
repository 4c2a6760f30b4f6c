package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kokorolog/feedback-service/internal/scheduler"
)

type cronRequest struct {
	// ReferenceTime overrides the window anchor, RFC 3339. Used by
	// operators to replay a past day's batch.
	ReferenceTime string `json:"reference_time"`
}

type cronResponse struct {
	Result *scheduler.RunResult `json:"result"`
}

// TriggerDailyBatch runs one synchronous batch cycle. The external cron
// trigger waits for the full report; there is no overall run deadline.
func TriggerDailyBatch(sched *scheduler.Scheduler, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cronRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}

		var reference time.Time
		if req.ReferenceTime != "" {
			parsed, err := time.Parse(time.RFC3339, req.ReferenceTime)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "reference_time must be RFC 3339"})
				return
			}
			reference = parsed
		}

		result, err := sched.RunDailyBatch(c.Request.Context(), reference)
		if err != nil {
			logger.Error().Err(err).Msg("Daily batch failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, cronResponse{Result: result})
	}
}
