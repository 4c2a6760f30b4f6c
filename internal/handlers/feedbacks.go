package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kokorolog/feedback-service/internal/feedback"
)

// ListFeedbacks returns a user's stored feedbacks, newest first.
func ListFeedbacks(storage *feedback.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		feedbacks, err := storage.ListByUser(c.Request.Context(), userID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list feedbacks"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"feedbacks": feedbacks, "count": len(feedbacks)})
	}
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// SetFeedbackFavorite toggles the favorite flag on one feedback row.
func SetFeedbackFavorite(storage *feedback.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
			return
		}

		req := favoriteRequest{Favorite: true}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}

		found, err := storage.SetFavorite(c.Request.Context(), id, req.Favorite)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update feedback"})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "feedback not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "favorite": req.Favorite})
	}
}
