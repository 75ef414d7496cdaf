package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 2)

	assert.True(t, rl.Allow("user-1"))
	assert.True(t, rl.Allow("user-1"))
	assert.False(t, rl.Allow("user-1"), "burst exhausted")

	// separate keys get separate buckets
	assert.True(t, rl.Allow("user-2"))
}

func TestPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(time.Hour, 1)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", "user-1") })
	r.Use(rl.PerUser())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
