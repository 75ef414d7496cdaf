package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorai/tutorai-backend/internal/auth"
	"github.com/tutorai/tutorai-backend/internal/auth/domain"
	"github.com/tutorai/tutorai-backend/internal/auth/service"
	"github.com/tutorai/tutorai-backend/internal/auth/session"
)

type stubUserRepo struct {
	user *domain.User
}

func (s *stubUserRepo) Create(context.Context, string, string, string, string) (*domain.User, error) {
	return s.user, nil
}

func (s *stubUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	if s.user == nil {
		return nil, domain.ErrNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) GetByID(context.Context, string) (*domain.User, error) {
	if s.user == nil {
		return nil, domain.ErrNotFound
	}
	return s.user, nil
}

func setupAuth(t *testing.T, role string) (*service.AuthService, string) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &stubUserRepo{user: &domain.User{
		ID:           "user-1",
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}}

	svc := service.NewAuthService(repo, session.NewStore(client, time.Hour), "test-secret", time.Hour, bcrypt.MinCost)

	token, _, err := svc.Login(context.Background(), "user@example.com", "correct-horse")
	require.NoError(t, err)

	return svc, token
}

func protectedRouter(svc *service.AuthService, adminOnly bool) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	grp := r.Group("/")
	grp.Use(RequireAuth(svc))
	if adminOnly {
		grp.Use(RequireAdmin())
	}
	grp.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": auth.UserID(c), "role": auth.UserRole(c)})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	svc, token := setupAuth(t, domain.RoleStudent)
	r := protectedRouter(svc, false)

	t.Run("valid token passes and sets context", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "user-1")
		assert.Contains(t, rr.Body.String(), domain.RoleStudent)
	})

	t.Run("missing header", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer garbage.token.here")

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Run("student is rejected", func(t *testing.T) {
		svc, token := setupAuth(t, domain.RoleStudent)
		r := protectedRouter(svc, true)

		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		svc, token := setupAuth(t, domain.RoleAdmin)
		r := protectedRouter(svc, true)

		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
