package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorai/tutorai-backend/internal/auth/domain"
	"github.com/tutorai/tutorai-backend/internal/auth/session"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	ErrBadEmail     = errors.New("invalid email address")
)

// UserRepo is the slice of the user repository the service needs.
type UserRepo interface {
	Create(ctx context.Context, email, passwordHash, displayName, role string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Claims carried inside issued JWTs. A token is only honored while the
// session named by SessionID still exists in Redis.
type Claims struct {
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users      UserRepo
	sessions   *session.Store
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
}

func NewAuthService(users UserRepo, sessions *session.Store, jwtSecret string, tokenTTL time.Duration, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || len(email) < 3 {
		return nil, ErrBadEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, email, string(hash), strings.TrimSpace(displayName), domain.RoleStudent)
}

// Login verifies credentials, opens a session and signs a JWT for it.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !u.IsActive {
		return "", nil, domain.ErrInactiveUser
	}

	sess, err := s.sessions.Create(ctx, u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := &Claims{
		UserID:    u.ID,
		Role:      u.Role,
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return token, u, nil
}

// VerifyToken checks the signature and expiry, then confirms the session
// is still alive. Logout therefore kills tokens before JWT expiry.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if _, err := s.sessions.Get(ctx, claims.SessionID); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}
