package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/principal"
	"gorm.io/gorm"
)

type Service interface {
	// CreateUser inserts a user using tx when given so callers can create
	// the owning customer or employee row atomically.
	CreateUser(ctx context.Context, tx *gorm.DB, req CreateUserRequest) (*User, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	SetActive(ctx context.Context, tx *gorm.DB, id snowflake.ID, active bool) error
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, current, next string) error
	HasRole(ctx context.Context, role principal.Role) (bool, error)
}

type CreateUserRequest struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
	Role        principal.Role
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}

// Identity is the result of resolving a session cookie.
type Identity struct {
	Session *Session
	User    *User
}
