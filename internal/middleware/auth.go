package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wanderhub/internal/config"
	"wanderhub/internal/domain/user"
)

const (
	ContextUserIDKey       = "userID"
	ContextUsernameKey     = "username"
	ContextSessionTokenKey = "sessionToken"
)

// SessionResolver maps an opaque session cookie to the authenticated user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*user.User, error)
}

// SessionMiddleware loads the session cookie if present. It never rejects:
// anonymous requests proceed without identity in the context.
func SessionMiddleware(cfg *config.SessionConfig, resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.CookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		u, err := resolver.ResolveSession(c.Request.Context(), token)
		if err != nil {
			// Invalid or expired session: treat as anonymous.
			c.Next()
			return
		}

		c.Set(ContextUserIDKey, u.ID)
		c.Set(ContextUsernameKey, u.Username)
		c.Set(ContextSessionTokenKey, token)
		c.Next()
	}
}

// RequireAuth gates session-only routes. Unauthenticated callers are sent
// to the login form rather than given an error page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID extracts the authenticated identity from the context.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// SessionToken returns the raw cookie token for the current session.
func SessionToken(c *gin.Context) string {
	if v, exists := c.Get(ContextSessionTokenKey); exists {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}
