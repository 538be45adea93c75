package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"go.uber.org/zap"
)

// Logger writes one access log line per request. Errors recorded with
// apperr.Abort are logged too; internal ones at error level with their cause.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", GetRequestID(c)),
		}

		for _, ginErr := range c.Errors {
			if apperr.KindOf(ginErr.Err) == apperr.KindInternal {
				log.Error("request failed", append(fields, zap.Error(ginErr.Err))...)
				return
			}
		}

		if len(c.Errors) > 0 {
			log.Info("request rejected", append(fields, zap.String("reason", c.Errors.Last().Error()))...)
			return
		}
		log.Info("request", fields...)
	}
}
