package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"go.uber.org/zap"
)

// Recovery turns a panic into a 500 error envelope
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", GetRequestID(c)),
					zap.Stack("stack"),
				)
				apperr.Abort(c, apperr.Internal("Internal server error", fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
