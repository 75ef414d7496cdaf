package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is the database connectivity probe; both pgxpool.Pool and the
// indexer store satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db"`
	GeminiAPI string    `json:"gemini_api"`
}

// HealthHandler reports service liveness plus the state of the two
// dependencies every service here has: Postgres and the Gemini API key.
type HealthHandler struct {
	serviceName      string
	version          string
	db               Pinger
	geminiConfigured bool
}

func NewHealthHandler(serviceName, version string, db Pinger, geminiConfigured bool) *HealthHandler {
	return &HealthHandler{
		serviceName:      serviceName,
		version:          version,
		db:               db,
		geminiConfigured: geminiConfigured,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	dbStatus := "disabled"

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := h.db.Ping(pingCtx); err != nil {
			dbStatus = "down"
			status = "unhealthy"
		} else {
			dbStatus = "up"
		}
	}

	gemini := "configured"
	if !h.geminiConfigured {
		gemini = "not configured"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        dbStatus,
		GeminiAPI: gemini,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
