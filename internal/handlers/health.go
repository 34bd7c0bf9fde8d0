package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	nats   *nats.Conn
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, nats: natsConn, logger: logger}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "dialog-orchestrator"})
}

// Ready handles GET /health/ready: the session store must answer for the
// service to take turns; audit DB and NATS degrade gracefully.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			h.logger.Error("Readiness check failed: redis unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "session store unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
