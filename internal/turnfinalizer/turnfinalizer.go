// Package turnfinalizer computes the single per-turn snapshot of
// effective slots, missing slots, and status that every downstream
// layer treats as ground truth. Nothing past this point
// may recompute missing_slots.
package turnfinalizer

import (
	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/domainfilter"
	"github.com/slotwise/dialog-orchestrator/internal/slotcontract"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// Result is finalize's output.
type Result struct {
	EffectiveSlots      domain.Slots
	ModificationContext *domain.ModificationContext
	MissingSlots        []domain.SlotKey
	AwaitingSlotBefore  *domain.SlotKey
	AwaitingSlotAfter   *domain.SlotKey
	Status              domain.Status
}

// Finalize runs DomainFilter and SlotContract over the merged slots, then
// resolves the awaiting_slot transition and base status.
//
// currentTurnSlots is the set of slots the NLU itself surfaced this turn,
// before the merge with session state; the modification_context for
// MODIFY_* intents is derived from it rather than from slots only
// inherited from the session.
func Finalize(log *logger.Logger, intent domain.Intent, mergedSlots domain.Slots, currentTurnSlots domain.Slots, awaitingSlotBefore *domain.SlotKey) Result {
	effective := domainfilter.Apply(log, mergedSlots, intent)

	var modCtx *domain.ModificationContext
	if intent == domain.IntentModifyBooking || intent == domain.IntentModifyReservation {
		modCtx = &domain.ModificationContext{
			ModifyingDate:      currentTurnSlots.Has(domain.SlotDate),
			ModifyingTime:      currentTurnSlots.Has(domain.SlotTime),
			ModifyingStartDate: currentTurnSlots.Has(domain.SlotStartDate),
			ModifyingEndDate:   currentTurnSlots.Has(domain.SlotEndDate),
		}
	}

	required := slotcontract.RequiredPlanningSlots(intent, effective, modCtx)
	present := effective.KeySet()
	missing := make([]domain.SlotKey, 0, len(required))
	for _, k := range required {
		if _, ok := present[k]; !ok {
			missing = append(missing, k)
		}
	}

	awaitingAfter := resolveAwaitingSlot(awaitingSlotBefore, effective, missing)

	status := domain.StatusNeedsClarification
	if len(missing) == 0 && awaitingAfter == nil {
		status = domain.StatusReady
	}

	return Result{
		EffectiveSlots:      effective,
		ModificationContext: modCtx,
		MissingSlots:        missing,
		AwaitingSlotBefore:  awaitingSlotBefore,
		AwaitingSlotAfter:   awaitingAfter,
		Status:              status,
	}
}

// resolveAwaitingSlot is a three-way rule: a satisfied
// awaited slot clears; an unsatisfied one is preserved even if
// missing_slots happens to be empty for some other reason; a fresh
// single-element missing_slots set becomes the new awaited slot.
func resolveAwaitingSlot(before *domain.SlotKey, effective domain.Slots, missing []domain.SlotKey) *domain.SlotKey {
	if before != nil && effective.Has(*before) {
		return nil
	}
	if len(missing) == 1 {
		k := missing[0]
		return &k
	}
	return before
}
