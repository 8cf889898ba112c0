package middleware

import (
	"fmt"
	"time"

	"puceats-api/metrics"
	"puceats-api/resp"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

// Logger logs each request once it completes and records it in m.
func Logger(log hclog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, route, status, elapsed)

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}
		if p, ok := CurrentPrincipal(c); ok {
			args = append(args, "user_id", p.UserID)
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.Last().Err)
		}
		switch {
		case status >= 500:
			log.Error("request", args...)
		case status >= 400:
			log.Warn("request", args...)
		default:
			log.Debug("request", args...)
		}
	}
}

// Recovery turns panics into a logged 500.
func Recovery(log hclog.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		log.Error("panic recovered", "error", err, "path", c.Request.URL.Path, "request_id", GetRequestID(c))
		resp.Error(c, fmt.Errorf("panic: %v", err))
	})
}
