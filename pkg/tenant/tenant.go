// Package tenant holds the process-resident, hot-swappable view of
// tenant alias tables (alias_key -> canonical_family) that
// internal/decision's service resolution consumes. It is not the
// catalog/organization service itself (that remains an external
// collaborator) but the local cache kept current by pkg/events'
// subscription to alias-update events.
package tenant

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// Registry is an immutable-after-swap, per-tenant alias table, shared
// read-only across turns.
type Registry struct {
	table  atomic.Pointer[map[string]map[string]string]
	logger *logger.Logger
}

// NewRegistry returns an empty registry. Entries accumulate as
// AliasesUpdated events arrive, or can be seeded directly via Swap for
// tests.
func NewRegistry(log *logger.Logger) *Registry {
	r := &Registry{logger: log}
	empty := make(map[string]map[string]string)
	r.table.Store(&empty)
	return r
}

// Get returns the cached alias table for tenantID, if any was ever
// pushed. The per-request tenant_context on the input always takes
// precedence over this cache; this is only the fallback when a caller
// chooses to use it.
func (r *Registry) Get(tenantID string) (map[string]string, bool) {
	table := *r.table.Load()
	aliases, ok := table[tenantID]
	return aliases, ok
}

// Swap atomically replaces tenantID's alias table. Readers observe
// either the old or the new table, never a partially updated one.
func (r *Registry) Swap(tenantID string, aliases map[string]string) {
	for {
		old := r.table.Load()
		next := make(map[string]map[string]string, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[tenantID] = aliases
		if r.table.CompareAndSwap(old, &next) {
			return
		}
	}
}

// AliasesUpdatedPayload matches the body of events.TenantAliasesUpdatedEvent
//.
type AliasesUpdatedPayload struct {
	TenantID string            `json:"tenant_id"`
	Aliases  map[string]string `json:"aliases"`
}

// HandleAliasesUpdated is the pkg/events.Subscriber-compatible handler
// that keeps this registry current without a process restart.
func (r *Registry) HandleAliasesUpdated(data []byte) error {
	var payload AliasesUpdatedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		if r.logger != nil {
			r.logger.Error("failed to unmarshal tenant.aliases.updated payload", "error", err)
		}
		return fmt.Errorf("unmarshal tenant aliases payload: %w", err)
	}
	if payload.TenantID == "" {
		if r.logger != nil {
			r.logger.Error("tenant.aliases.updated payload missing tenant_id")
		}
		return fmt.Errorf("tenant.aliases.updated payload missing tenant_id")
	}
	r.Swap(payload.TenantID, payload.Aliases)
	if r.logger != nil {
		r.logger.Info("refreshed tenant alias table", "tenant_id", payload.TenantID, "alias_count", len(payload.Aliases))
	}
	return nil
}

// ResolveContext returns the TenantContext to use for a turn: the
// per-request context if it carries aliases, else the cached fallback
// for tenantID, else an invalid/empty context.
func (r *Registry) ResolveContext(tenantID string, fromRequest *domain.TenantContext) *domain.TenantContext {
	if fromRequest.Valid() {
		return fromRequest
	}
	cached, ok := r.Get(tenantID)
	if !ok {
		return fromRequest
	}
	bookingMode := domain.Domain("")
	if fromRequest != nil {
		bookingMode = fromRequest.BookingMode
	}
	return &domain.TenantContext{BookingMode: bookingMode, Aliases: cached}
}
