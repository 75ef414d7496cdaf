package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func getHealth(t *testing.T, handler *HealthHandler, path string) HealthResponse {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler.RegisterRoutes(router)

	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	t.Run("database up", func(t *testing.T) {
		handler := NewHealthHandler("tutorai-api", "1.0.0", &fakePinger{}, true)

		for _, path := range []string{"/health", "/healthz"} {
			resp := getHealth(t, handler, path)
			assert.Equal(t, "healthy", resp.Status)
			assert.Equal(t, "tutorai-api", resp.Service)
			assert.Equal(t, "1.0.0", resp.Version)
			assert.Equal(t, "up", resp.DB)
			assert.Equal(t, "configured", resp.GeminiAPI)
		}
	})

	t.Run("database down", func(t *testing.T) {
		handler := NewHealthHandler("tutorai-api", "1.0.0", &fakePinger{err: errors.New("dial tcp: refused")}, true)

		resp := getHealth(t, handler, "/health")
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "down", resp.DB)
	})

	t.Run("no database wired", func(t *testing.T) {
		handler := NewHealthHandler("tutorai-api", "1.0.0", nil, false)

		resp := getHealth(t, handler, "/health")
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "disabled", resp.DB)
		assert.Equal(t, "not configured", resp.GeminiAPI)
	})
}
