package chat

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorai/tutorai-backend/internal/auth"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type Handler struct {
	repo *Repo
	svc  *Service
}

// Register mounts the chat routes. askLimiter guards the message endpoint;
// everything else is plain CRUD.
func Register(rg *gin.RouterGroup, repo *Repo, svc *Service, askLimiter gin.HandlerFunc) {
	h := &Handler{repo: repo, svc: svc}

	rg.POST("/sessions", h.createSession)
	rg.GET("/sessions", h.listSessions)
	rg.DELETE("/sessions/:id", h.deleteSession)
	rg.GET("/sessions/:id/messages", h.listMessages)

	if askLimiter != nil {
		rg.POST("/sessions/:id/messages", askLimiter, h.ask)
	} else {
		rg.POST("/sessions/:id/messages", h.ask)
	}
}

type createSessionReq struct {
	Title *string `json:"title"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	s, err := h.repo.CreateSession(c.Request.Context(), auth.UserID(c), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "session": s})
}

func (h *Handler) listSessions(c *gin.Context) {
	items, err := h.repo.ListSessions(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sessions": items})
}

func (h *Handler) deleteSession(c *gin.Context) {
	ok, err := h.repo.DeleteSession(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type askReq struct {
	Message    string `json:"message"`
	DocumentID *int64 `json:"document_id"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	ans, err := h.svc.Ask(c.Request.Context(), auth.UserID(c), c.Param("id"), strings.TrimSpace(req.Message), req.DocumentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
		case errors.Is(err, ErrRetrievalUnavailable), errors.Is(err, ErrGenerationFailed):
			c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"answer":  ans.AssistantMessage.Content,
		"sources": ans.AssistantMessage.Sources,
		"message": ans.AssistantMessage,
	})
}

func (h *Handler) listMessages(c *gin.Context) {
	userID := auth.UserID(c)
	sessionID := c.Param("id")

	if _, err := h.repo.GetSession(c.Request.Context(), userID, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	limit, offset := Pagination(c.Query("limit"), c.Query("offset"))

	msgs, total, err := h.repo.ListMessages(c.Request.Context(), sessionID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"messages": msgs,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Pagination parses limit/offset query values, clamping limit to
// [1, maxPageSize] and offset to >= 0.
func Pagination(limitStr, offsetStr string) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(limitStr); err == nil {
		limit = v
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if v, err := strconv.Atoi(offsetStr); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
