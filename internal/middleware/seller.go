package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"wanderhub/internal/logger"
)

const (
	ContextIsSellerKey     = "isSeller"
	ContextPendingCountKey = "pendingRequestCount"
)

// RoleResolver derives per-request seller context. It is intentionally
// uncached: seller status and the notification count are recomputed on
// every request against the listing store.
type RoleResolver interface {
	IsSeller(ctx context.Context, userID uuid.UUID) (bool, error)
	PendingUnseenCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// SellerContextMiddleware annotates authenticated requests with seller
// status and the unseen pending-request count for presentation.
func SellerContextMiddleware(resolver RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			c.Next()
			return
		}

		isSeller, err := resolver.IsSeller(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Failed to resolve seller status",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			c.Next()
			return
		}
		c.Set(ContextIsSellerKey, isSeller)

		if isSeller {
			count, err := resolver.PendingUnseenCount(c.Request.Context(), userID)
			if err != nil {
				logger.Error("Failed to count pending requests",
					zap.String("user_id", userID.String()),
					zap.Error(err),
				)
			} else {
				c.Set(ContextPendingCountKey, count)
			}
		}

		c.Next()
	}
}

// RequireSeller gates the seller dashboard. Non-sellers are sent back to
// the listing index, not shown an error.
func RequireSeller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		if !IsSeller(c) {
			c.Redirect(http.StatusSeeOther, "/listings")
			c.Abort()
			return
		}
		c.Next()
	}
}

func IsSeller(c *gin.Context) bool {
	if v, exists := c.Get(ContextIsSellerKey); exists {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func PendingRequestCount(c *gin.Context) int64 {
	if v, exists := c.Get(ContextPendingCountKey); exists {
		if n, ok := v.(int64); ok {
			return n
		}
	}
	return 0
}
