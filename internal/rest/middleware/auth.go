package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/drivekit/billing/internal/config"
	ierr "github.com/drivekit/billing/internal/errors"
)

// HeaderInternalToken authenticates support-tool requests.
const HeaderInternalToken = "X-Internal-Token"

// InternalAuthMiddleware guards the endpoints reserved for internal
// support tooling.
func InternalAuthMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderInternalToken)
		if cfg.Server.InternalToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Server.InternalToken)) != 1 {
			c.Error(ierr.NewError("invalid internal token").
				WithHint("This endpoint is reserved for internal tooling").
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}
		c.Next()
	}
}
