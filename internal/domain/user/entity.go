package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents an identity in the marketplace.
type User struct {
	ID             uuid.UUID
	Username       string
	Email          string
	PasswordHashed string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PasswordResetToken is a single-use credential for resetting a password.
// At most one outstanding token exists per user; issuing a new one
// replaces any prior token.
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Session is an opaque server-side session. The cookie carries only the
// random token; all state lives here.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

func (s *Session) Valid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
