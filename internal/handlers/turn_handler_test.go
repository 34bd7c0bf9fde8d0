package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/handlers"
	"github.com/slotwise/dialog-orchestrator/internal/orchestrator"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

type stubTurnService struct {
	lastReq  *orchestrator.TurnRequest
	response *orchestrator.TurnResponse
}

func (s *stubTurnService) HandleTurn(ctx context.Context, req *orchestrator.TurnRequest) *orchestrator.TurnResponse {
	s.lastReq = req
	return s.response
}

func newRouter(svc *stubTurnService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := handlers.NewTurnHandler(svc, logger.New("error"))
	router.POST("/api/v1/turns", handler.HandleTurn)
	return router
}

func postTurn(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "/api/v1/turns", bytes.NewBuffer(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleTurn_Success(t *testing.T) {
	svc := &stubTurnService{response: &orchestrator.TurnResponse{
		Success: true,
		Outcome: &orchestrator.Outcome{
			Status:     domain.StatusNeedsClarification,
			IntentName: domain.IntentCreateAppointment,
			Slots:      domain.NewSlots(),
		},
	}}
	router := newRouter(svc)

	w := postTurn(t, router, map[string]any{
		"user_id": "u1",
		"text":    "book a haircut",
		"domain":  "service",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastReq)
	assert.Equal(t, "u1", svc.lastReq.UserID)
	assert.Equal(t, domain.DomainService, svc.lastReq.Domain)

	var resp orchestrator.TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, domain.StatusNeedsClarification, resp.Outcome.Status)
}

func TestHandleTurn_RejectsMissingFields(t *testing.T) {
	svc := &stubTurnService{}
	router := newRouter(svc)

	w := postTurn(t, router, map[string]any{"text": "hello", "domain": "service"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.lastReq, "handler must not reach the orchestrator on a bad request")
}

func TestHandleTurn_RejectsUnknownDomain(t *testing.T) {
	svc := &stubTurnService{}
	router := newRouter(svc)

	w := postTurn(t, router, map[string]any{"user_id": "u1", "text": "hello", "domain": "restaurant"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTurn_NLUFailureMapsToBadGateway(t *testing.T) {
	svc := &stubTurnService{response: &orchestrator.TurnResponse{
		Success: false,
		Error:   domain.ErrorNLUUnavailable,
		Outcome: &orchestrator.Outcome{
			Status: domain.StatusNeedsClarification,
			Slots:  domain.NewSlots(),
		},
	}}
	router := newRouter(svc)

	w := postTurn(t, router, map[string]any{"user_id": "u1", "text": "hello", "domain": "service"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
