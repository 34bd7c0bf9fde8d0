package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// ExecutionBackend is the consumed interface Orchestrator dispatches a
// READY plan's commit (or matched fallback) action to.
type ExecutionBackend interface {
	Dispatch(ctx context.Context, action string, intent domain.Intent, slots domain.Slots) (*ExecutionResult, error)
}

// ExecutionResult is what dispatching an action returns: whether it
// executed outright, a booking code when one was minted, and the
// confirmation_state the outcome should carry.
type ExecutionResult struct {
	Executed          bool   `json:"executed"`
	BookingCode       string `json:"booking_code,omitempty"`
	ConfirmationState string `json:"confirmation_state,omitempty"`
}

// ExecutionClient is the HTTP-backed ExecutionBackend.
type ExecutionClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewExecutionClient builds a client with the given base URL and
// per-call timeout ceiling.
func NewExecutionClient(baseURL string, timeout time.Duration, log *logger.Logger) *ExecutionClient {
	return &ExecutionClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     log,
	}
}

type dispatchRequest struct {
	Action string        `json:"action"`
	Intent domain.Intent `json:"intent"`
	Slots  domain.Slots  `json:"slots"`
}

// Dispatch calls the execution backend's dispatch endpoint for action.
// Idempotency is the backend's responsibility, not ours: we call it
// at most once per turn.
func (c *ExecutionClient) Dispatch(ctx context.Context, action string, intent domain.Intent, slots domain.Slots) (*ExecutionResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("execution backend base url is not configured")
	}

	payload, err := json.Marshal(dispatchRequest{Action: action, Intent: intent, Slots: slots})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/actions/dispatch", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("execution dispatch request failed", "error", err, "action", action, "url", url)
		return nil, fmt.Errorf("execution backend request failed: %w", err)
	}
	defer resp.Body.Close()

	var result ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode dispatch response: %w (status %d)", err, resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		c.logger.Error("execution dispatch request returned error status", "status_code", resp.StatusCode, "action", action, "url", url)
		return nil, fmt.Errorf("execution backend returned status %d", resp.StatusCode)
	}

	return &result, nil
}
