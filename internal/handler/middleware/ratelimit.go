package middleware

import (
	"errors"
	"net/http"

	"renovecare/internal/domain/ratelimit"
	"renovecare/internal/handler/httperr"
	"renovecare/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type RateLimitMiddleware struct {
	limiter *commands.RateLimiter
}

func NewRateLimitMiddleware(limiter *commands.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit applies the fixed-window limiter to one endpoint. Must run after
// RequireAuth so the user dimension is available; IP and device come from
// the connection and the X-Device-ID header.
func (m *RateLimitMiddleware) Limit(endpoint string, maxAttempts int) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := ratelimit.Identity{
			IP:       c.ClientIP(),
			DeviceID: c.GetHeader("X-Device-ID"),
		}
		if userID, ok := GetUserID(c); ok {
			identity.UserID = userID.String()
		}

		if err := m.limiter.Allow(c.Request.Context(), identity, endpoint, maxAttempts); err != nil {
			if errors.Is(err, commands.ErrRateLimited) {
				httperr.Abort(c, http.StatusTooManyRequests, err, "Too many attempts, try again later")
				return
			}
			httperr.Internal(c, err)
			return
		}
		c.Next()
	}
}
