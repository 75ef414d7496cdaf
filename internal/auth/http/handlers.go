package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorai/tutorai-backend/internal/auth"
	"github.com/tutorai/tutorai-backend/internal/auth/domain"
	authmw "github.com/tutorai/tutorai-backend/internal/auth/middleware"
	"github.com/tutorai/tutorai-backend/internal/auth/service"
)

type Handler struct {
	svc *service.AuthService
}

// Register mounts the auth routes. Public: register/login. The rest sits
// behind RequireAuth.
func Register(rg *gin.RouterGroup, svc *service.AuthService) {
	h := &Handler{svc: svc}

	rg.POST("/register", h.register)
	rg.POST("/login", h.login)

	authed := rg.Group("")
	authed.Use(authmw.RequireAuth(svc))
	authed.POST("/logout", h.logout)
	authed.GET("/me", h.me)
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	u, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "email already registered"})
		case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrBadEmail):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": u})
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	token, u, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid email or password"})
		case errors.Is(err, domain.ErrInactiveUser):
			c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "account is deactivated"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "token": token, "user": u})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), auth.SessionID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Profile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}
