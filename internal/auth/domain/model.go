package domain

import (
	"errors"
	"time"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("user is deactivated")
)

// User represents an account in the application. PasswordHash never
// leaves the repository/service layer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleAdmin
}
