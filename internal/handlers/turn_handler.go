package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/dialog-orchestrator/internal/auditlog"
	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/orchestrator"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// TurnService is the slice of the orchestrator the HTTP layer needs.
type TurnService interface {
	HandleTurn(ctx context.Context, req *orchestrator.TurnRequest) *orchestrator.TurnResponse
}

// TurnHandler handles per-turn HTTP requests
type TurnHandler struct {
	service TurnService
	logger  *logger.Logger
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(service TurnService, logger *logger.Logger) *TurnHandler {
	return &TurnHandler{service: service, logger: logger}
}

// HandleTurn handles POST /api/v1/turns
func (h *TurnHandler) HandleTurn(c *gin.Context) {
	var req orchestrator.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind turn request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	if req.UserID == "" || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and text are required"})
		return
	}
	if req.Domain != domain.DomainService && req.Domain != domain.DomainReservation {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain must be service or reservation"})
		return
	}

	resp := h.service.HandleTurn(c.Request.Context(), &req)

	status := http.StatusOK
	if !resp.Success && (resp.Error == domain.ErrorNLUUnavailable || resp.Error == domain.ErrorNLUTimeout) {
		status = http.StatusBadGateway
	}
	c.JSON(status, resp)
}

// AuditHandler serves the per-conversation turn trail.
type AuditHandler struct {
	repo   *auditlog.Repository
	logger *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(repo *auditlog.Repository, logger *logger.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, logger: logger}
}

// ListTurns handles GET /api/v1/audit/:userId/turns?domain=service&limit=20
func (h *AuditHandler) ListTurns(c *gin.Context) {
	userID := c.Param("userId")
	d := domain.Domain(c.Query("domain"))
	if d != domain.DomainService && d != domain.DomainReservation {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain must be service or reservation"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 200"})
			return
		}
		limit = parsed
	}

	records, err := h.repo.ListByUser(userID, d, limit)
	if err != nil {
		h.logger.Error("Failed to list audit records", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve turn history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"turns": records})
}
