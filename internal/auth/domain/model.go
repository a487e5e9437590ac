// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/newsexpress/internal/principal"
)

// User is a login account. Customers and employees each reference one.
type User struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email"`
	DisplayName  string         `json:"display_name"`
	Phone        string         `json:"phone"`
	PasswordHash string         `json:"-"`
	Role         principal.Role `json:"role"`
	IsActive     bool           `json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Session is a persisted login. Only the sha256 of the cookie token is stored.
type Session struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     snowflake.ID
	TokenHash  string
	UserAgent  string
	IPAddress  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Session) TableName() string { return "sessions" }
