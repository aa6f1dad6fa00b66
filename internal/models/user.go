package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents an account that can sign in to the board
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	DisplayName    string    `json:"display_name" db:"display_name"`
	SessionVersion int       `json:"-" db:"session_version"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Name returns the display name, falling back to the local part of the email
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	local, _, _ := strings.Cut(u.Email, "@")
	if local == "" {
		return "owner"
	}
	return local
}

// PasswordReset is a single-use token allowing a password change without the old password
type PasswordReset struct {
	TokenHash string     `db:"token_hash"`
	UserID    uuid.UUID  `db:"user_id"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// IsUsable reports whether the reset token can still be redeemed at now
func (p *PasswordReset) IsUsable(now time.Time) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt)
}
