package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for users and their reset tokens.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	// GetByEmail matches the email case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// CreatePasswordResetToken replaces any outstanding token for the user.
	CreatePasswordResetToken(ctx context.Context, token *PasswordResetToken) error
	// GetPasswordResetToken returns only unused, unexpired tokens.
	GetPasswordResetToken(ctx context.Context, token string) (*PasswordResetToken, error)
	MarkTokenAsUsed(ctx context.Context, tokenID uuid.UUID) error
}

// SessionRepository defines persistence for server-side sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	// GetByToken returns only sessions that are not revoked and not expired.
	GetByToken(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
