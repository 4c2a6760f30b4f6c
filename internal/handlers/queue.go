package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kokorolog/feedback-service/internal/queue"
)

// QueueStats reports the per-status row counts of the feedback queue.
func QueueStats(store *queue.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue statistics unavailable"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
