// Package client holds the HTTP clients for the two external
// collaborators Orchestrator calls out to: the NLU service and the
// ExecutionBackend. Both carry the caller's context so the request
// deadline bounds every external call.
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

// NLUProvider is the consumed NLU interface:
// resolve(user_id, text, domain, timezone, tenant_context) -> NLU response.
type NLUProvider interface {
	Resolve(ctx context.Context, userID, text string, bookingDomain domain.Domain, timezone string, tenantCtx *domain.TenantContext) (*domain.NLUResponse, error)
}

// NLUClient is the HTTP-backed NLUProvider.
type NLUClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewNLUClient builds a client with the given base URL and per-call
// timeout ceiling; the actual deadline for any one call is whichever of
// this timeout or the caller's context fires first.
func NewNLUClient(baseURL string, timeout time.Duration, log *logger.Logger) *NLUClient {
	return &NLUClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     log,
	}
}

type nluResolveRequest struct {
	UserID        string                `json:"user_id"`
	Text          string                `json:"text"`
	Domain        domain.Domain         `json:"domain"`
	Timezone      string                `json:"timezone"`
	TenantContext *domain.TenantContext `json:"tenant_context,omitempty"`
}

// Resolve calls the NLU service's resolve endpoint. Callers are
// expected to wrap ctx with a deadline; NLUClient never applies one of
// its own beyond the http.Client timeout ceiling.
func (c *NLUClient) Resolve(ctx context.Context, userID, text string, bookingDomain domain.Domain, timezone string, tenantCtx *domain.TenantContext) (*domain.NLUResponse, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("nlu service base url is not configured")
	}

	payload, err := json.Marshal(nluResolveRequest{
		UserID:        userID,
		Text:          text,
		Domain:        bookingDomain,
		Timezone:      timezone,
		TenantContext: tenantCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nlu resolve request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/nlu/resolve", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create nlu resolve request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("nlu resolve request failed", "error", err, "url", url)
		return nil, fmt.Errorf("nlu service request failed: %w", err)
	}
	defer resp.Body.Close()

	var nluResp domain.NLUResponse
	if err := json.NewDecoder(resp.Body).Decode(&nluResp); err != nil {
		return nil, fmt.Errorf("failed to decode nlu resolve response: %w (status %d)", err, resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		c.logger.Error("nlu resolve request returned error status", "status_code", resp.StatusCode, "url", url)
		return nil, fmt.Errorf("nlu service returned status %d", resp.StatusCode)
	}

	return &nluResp, nil
}
