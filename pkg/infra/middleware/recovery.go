package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/response"
)

// RecoveryConfig defines the config for Recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace includes the stack trace in the error response.
	EnableStackTrace bool
}

// Recovery returns a middleware that converts panics into the error envelope.
func Recovery(config RecoveryConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Errorw("panic recovered",
					"error", fmt.Sprint(r),
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c),
					"stack", string(stack),
				)

				msg := fmt.Sprintf("panic: %v", r)
				if config.EnableStackTrace {
					msg = fmt.Sprintf("%s\n%s", msg, stack)
				}
				resp := response.Err(errors.ErrPanic.WithMessage(msg)).WithRequestID(GetRequestID(c))
				c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
			}
		}()
		c.Next()
	}
}
