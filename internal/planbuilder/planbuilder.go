// Package planbuilder combines a DecisionLayer-adjacent TurnState with
// the YAML-configured commit/fallback action table into the single
// {status, allowed_actions, blocked_actions, awaiting, awaiting_slot}
// verdict the orchestrator dispatches on.
package planbuilder

import (
	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/registry"
)

// Build applies the status precedence. turn.MissingSlots and
// turn.AwaitingSlotAfter come from TurnFinalizer and are never
// recomputed here. nluNeedsClarification and confirmationState come
// straight from the NLU response's post-merge view.
func Build(reg *registry.Registry, intent domain.Intent, turn *domain.TurnState, nluNeedsClarification bool, confirmationState string) domain.Plan {
	entry, _ := reg.ExecutionFor(string(intent))
	commitAction := entry.Commit.Action

	if len(turn.MissingSlots) > 0 {
		return blockedOnClarification(commitAction, turn.AwaitingSlotAfter)
	}
	if nluNeedsClarification {
		return blockedOnClarification(commitAction, turn.AwaitingSlotAfter)
	}
	if confirmationState == "pending" {
		return domain.Plan{
			Status:         domain.StatusAwaitingConfirmation,
			BlockedActions: nonEmpty(commitAction),
			Awaiting:       "USER_CONFIRMATION",
			AwaitingSlot:   turn.AwaitingSlotAfter,
		}
	}

	// READY: fallbacks never executed while a required slot is missing
	// (checked above), so this only surfaces fallbacks keyed on slots
	// outside the current required set that are still absent.
	allowed := nonEmpty(commitAction)
	for _, fb := range entry.Fallbacks {
		if anyMissing(fb.WhenMissing.AnyOf, turn.EffectiveSlots) {
			allowed = appendUnique(allowed, fb.Action)
		}
	}

	status := domain.StatusReady
	awaitingSlot := turn.AwaitingSlotAfter
	if awaitingSlot != nil {
		// The awaited slot is still pending even though missing_slots is
		// empty; force clarification rather than reporting READY.
		status = domain.StatusNeedsClarification
	}

	return domain.Plan{
		Status:         status,
		AllowedActions: allowed,
		AwaitingSlot:   awaitingSlot,
	}
}

func blockedOnClarification(commitAction string, awaitingSlot *domain.SlotKey) domain.Plan {
	return domain.Plan{
		Status:         domain.StatusNeedsClarification,
		BlockedActions: nonEmpty(commitAction),
		AwaitingSlot:   awaitingSlot,
	}
}

func nonEmpty(action string) []string {
	if action == "" {
		return nil
	}
	return []string{action}
}

func appendUnique(actions []string, action string) []string {
	if action == "" {
		return actions
	}
	for _, a := range actions {
		if a == action {
			return actions
		}
	}
	return append(actions, action)
}

func anyMissing(slots []string, effective domain.Slots) bool {
	for _, s := range slots {
		if !effective.Has(domain.SlotKey(s)) {
			return true
		}
	}
	return false
}
