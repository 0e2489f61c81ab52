package user

import (
	"net/http"
	"time"

	"github.com/curbshare/parking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "user not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrInactiveUser       = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "password must be at least 8 characters")
	ErrInvalidRole        = apperror.New(http.StatusBadRequest, "role must be driver or host")
)

// Role decides which parts of the API a user can reach.
type Role string

const (
	RoleDriver Role = "driver"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
)

// User represents a user in the system.
type User struct {
	ID                  string // UUID
	Email               string
	PasswordHash        string
	DisplayName         *string
	Role                Role
	HostStripeAccountID *string
	IsActive            bool
	CreatedAt           time.Time
	LastLoginAt         *time.Time
}
