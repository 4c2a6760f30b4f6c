package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func cronAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/trigger", CronAuthMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doAuthRequest(router *gin.Engine, authorization string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(w, req)
	return w.Code
}

func TestCronAuthMiddlewareAcceptsValidToken(t *testing.T) {
	t.Setenv("CRON_SECRET", "topsecret")
	router := cronAuthRouter()

	assert.Equal(t, http.StatusOK, doAuthRequest(router, "Bearer topsecret"))
}

func TestCronAuthMiddlewareRejectsBadToken(t *testing.T) {
	t.Setenv("CRON_SECRET", "topsecret")
	router := cronAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, doAuthRequest(router, "Bearer wrong"))
	assert.Equal(t, http.StatusUnauthorized, doAuthRequest(router, ""))
}

func TestCronAuthMiddlewareFailsWhenUnconfigured(t *testing.T) {
	t.Setenv("CRON_SECRET", "")
	router := cronAuthRouter()

	// Even a would-be-valid token is rejected when no secret is configured.
	assert.Equal(t, http.StatusInternalServerError, doAuthRequest(router, "Bearer topsecret"))
}
