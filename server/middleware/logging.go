package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultkit/logger"
)

// RequestLogger logs every request with method, path, status and latency.
// Health-check paths are skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		if isHealthEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		fields := map[string]interface{}{
			"method":         c.Request.Method,
			logger.FieldPath: path,
			"status":         status,
			"latency_ms":     latency.Milliseconds(),
			"client":         c.ClientIP(),
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Error("Request completed", fields)
		case status >= 400:
			l.Warn("Request completed", fields)
		default:
			l.Debug("Request completed", fields)
		}
	}
}

func isHealthEndpoint(path string) bool {
	for _, hp := range []string{"/health", "/alive", "/ready", "/metrics"} {
		if path == hp || (strings.HasPrefix(path, "/api") && strings.HasSuffix(path, hp)) {
			return true
		}
	}
	return false
}
