package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	httpapi "github.com/tutorai/tutorai-backend/internal/api/http"
	"github.com/tutorai/tutorai-backend/internal/indexer/service"
	"github.com/tutorai/tutorai-backend/internal/indexer/store"
)

// Indexer is the service surface the handlers expose over HTTP.
type Indexer interface {
	IndexDocument(ctx context.Context, documentID int64, filePath string) (int, error)
	EmbedPending(ctx context.Context, documentID *int64, batchSize, maxRetries int) (*service.EmbedReport, error)
	RetryFailed(ctx context.Context, documentID *int64) (int, error)
	Retrieve(ctx context.Context, query string, topK int, documentID *int64) ([]store.Match, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

type Handler struct {
	svc            Indexer
	health         *httpapi.HealthHandler
	version        string
	defaultBatch   int
	defaultRetries int
	defaultTopK    int
}

type Options struct {
	Version          string
	GeminiConfigured bool
	DefaultBatchSize int
	DefaultRetries   int
	DefaultTopK      int
}

func NewHandler(svc Indexer, db httpapi.Pinger, opts Options) *Handler {
	if opts.DefaultBatchSize <= 0 {
		opts.DefaultBatchSize = 50
	}
	if opts.DefaultRetries <= 0 {
		opts.DefaultRetries = 3
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	return &Handler{
		svc:            svc,
		health:         httpapi.NewHealthHandler("tutorai-indexer", opts.Version, db, opts.GeminiConfigured),
		version:        opts.Version,
		defaultBatch:   opts.DefaultBatchSize,
		defaultRetries: opts.DefaultRetries,
		defaultTopK:    opts.DefaultTopK,
	}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.root)
	h.health.RegisterRoutes(r)
	r.POST("/index", h.index)
	r.POST("/embed", h.embed)
	r.POST("/retry-failed", h.retryFailed)
	r.POST("/retrieve", h.retrieve)
	r.GET("/stats", h.stats)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "tutorai-indexer",
		"status":  "running",
		"version": h.version,
	})
}

type indexReq struct {
	DocumentID int64  `json:"document_id"`
	FilePath   string `json:"file_path"`
}

func (h *Handler) index(c *gin.Context) {
	var req indexReq
	if err := c.ShouldBindJSON(&req); err != nil || req.DocumentID <= 0 || strings.TrimSpace(req.FilePath) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	created, err := h.svc.IndexDocument(c.Request.Context(), req.DocumentID, req.FilePath)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
		case errors.Is(err, service.ErrNoText), errors.Is(err, service.ErrNoChunks):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"document_id":    req.DocumentID,
		"chunks_created": created,
	})
}

func (h *Handler) embed(c *gin.Context) {
	documentID, ok := optionalDocumentID(c)
	if !ok {
		return
	}

	batchSize := queryInt(c, "batch_size", h.defaultBatch)
	maxRetries := queryInt(c, "max_retries", h.defaultRetries)

	report, err := h.svc.EmbedPending(c.Request.Context(), documentID, batchSize, maxRetries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"processed":        report.Processed,
		"succeeded":        report.Succeeded,
		"failed":           report.Failed,
		"failed_chunk_ids": report.FailedChunkIDs,
	})
}

func (h *Handler) retryFailed(c *gin.Context) {
	documentID, ok := optionalDocumentID(c)
	if !ok {
		return
	}

	reset, err := h.svc.RetryFailed(c.Request.Context(), documentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "reset_count": reset})
}

type retrieveReq struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	DocumentID *int64 `json:"document_id"`
}

func (h *Handler) retrieve(c *gin.Context) {
	var req retrieveReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.TopK <= 0 {
		req.TopK = h.defaultTopK
	}

	results, err := h.svc.Retrieve(c.Request.Context(), req.Query, req.TopK, req.DocumentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "query": req.Query, "results": results})
}

func (h *Handler) stats(c *gin.Context) {
	s, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"documents": s.DocumentsByStatus,
		"chunks": gin.H{
			"total":           s.ChunksTotal,
			"with_embeddings": s.ChunksEmbedded,
			"by_status":       s.ChunksByStatus,
		},
	})
}

func optionalDocumentID(c *gin.Context) (*int64, bool) {
	raw := c.Query("document_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid document_id"})
		return nil, false
	}
	return &id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
