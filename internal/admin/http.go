package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorai/tutorai-backend/internal/auth"
	"github.com/tutorai/tutorai-backend/internal/auth/domain"
	"github.com/tutorai/tutorai-backend/internal/auth/session"
	"github.com/tutorai/tutorai-backend/internal/chat"
	"github.com/tutorai/tutorai-backend/internal/users"
)

type Handler struct {
	users      *users.Repo
	sessions   *session.Store
	stats      *StatsRepo
	bcryptCost int
}

// Register mounts the admin user CRUD and stats routes. Document routes
// are mounted separately by the documents package.
func Register(rg *gin.RouterGroup, userRepo *users.Repo, sessions *session.Store, stats *StatsRepo, bcryptCost int) {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	h := &Handler{users: userRepo, sessions: sessions, stats: stats, bcryptCost: bcryptCost}

	rg.GET("/stats", h.getStats)

	u := rg.Group("/users")
	u.GET("", h.listUsers)
	u.POST("", h.createUser)
	u.PATCH("/:id", h.updateUser)
	u.DELETE("/:id", h.deleteUser)
}

func (h *Handler) getStats(c *gin.Context) {
	s, err := h.stats.Collect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stats": s})
}

func (h *Handler) listUsers(c *gin.Context) {
	role := c.Query("role")
	if role != "" && !domain.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid role filter"})
		return
	}

	limit, offset := chat.Pagination(c.Query("limit"), c.Query("offset"))

	items, total, err := h.users.List(c.Request.Context(), users.ListFilter{
		Role:   role,
		Query:  strings.TrimSpace(c.Query("q")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"users":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

type createUserReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "password must be at least 8 characters"})
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleStudent
	}
	if !domain.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid role"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	u, err := h.users.Create(c.Request.Context(), strings.TrimSpace(req.Email), string(hash), strings.TrimSpace(req.DisplayName), req.Role)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": u})
}

type updateUserReq struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
	Password    *string `json:"password"`
}

func (h *Handler) updateUser(c *gin.Context) {
	id := c.Param("id")

	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.Role != nil && !domain.ValidRole(*req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid role"})
		return
	}

	fields := users.UpdateFields{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		IsActive:    req.IsActive,
	}

	if req.Password != nil {
		if len(*req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "password must be at least 8 characters"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), h.bcryptCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
		hashStr := string(hash)
		fields.PasswordHash = &hashStr
	}

	u, err := h.users.Update(c.Request.Context(), id, fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	// password reset or deactivation kills existing sessions
	if req.Password != nil || (req.IsActive != nil && !*req.IsActive) {
		if err := h.sessions.DeleteAllForUser(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("id")

	if id == auth.UserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "cannot delete your own account"})
		return
	}

	ok, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
		return
	}

	if err := h.sessions.DeleteAllForUser(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
