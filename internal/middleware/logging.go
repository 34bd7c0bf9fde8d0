package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// RequestLogging logs one line per request with a minted request ID,
// skipping health probes.
func RequestLogging(log *logger.Logger) gin.HandlerFunc {
	skip := map[string]bool{
		"/health":       true,
		"/health/live":  true,
		"/health/ready": true,
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			"request_id", requestID,
			"method", method,
			"path", path,
			"client_ip", c.ClientIP(),
			"status_code", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// RequestID returns the request ID minted by RequestLogging; when none
// was set it returns a freshly minted ID.
func RequestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return uuid.New().String()
}
