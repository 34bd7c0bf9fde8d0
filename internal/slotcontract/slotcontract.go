// Package slotcontract declares, per intent, which slots planning needs
// to advance a turn to READY and which slots are valid for an intent's
// domain. Small, pure, table-driven functions; no I/O.
package slotcontract

import (
	"sort"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
)

// planningRequiredSlotsByIntent is the base per-intent requirement table.
var planningRequiredSlotsByIntent = map[domain.Intent][]domain.SlotKey{
	domain.IntentCreateAppointment: {domain.SlotServiceID, domain.SlotDate, domain.SlotTime},
	domain.IntentCreateReservation: {domain.SlotServiceID, domain.SlotStartDate, domain.SlotEndDate},
	domain.IntentModifyBooking:     {domain.SlotBookingID, domain.SlotDate, domain.SlotTime},
	domain.IntentModifyReservation: {domain.SlotBookingID, domain.SlotStartDate, domain.SlotEndDate},
	domain.IntentCancelBooking:     {domain.SlotBookingID},
}

// RequiredPlanningSlots returns the ordered, deduplicated, sorted set of
// slots planning needs for this intent, narrowed for MODIFY_* intents by
// modification_context (authoritative when present) or, failing that, by
// which dimensions the current turn's collected slots already carry
//.
func RequiredPlanningSlots(intent domain.Intent, collected domain.Slots, modCtx *domain.ModificationContext) []domain.SlotKey {
	switch intent {
	case domain.IntentModifyBooking:
		return requiredForModifyBooking(collected, modCtx)
	case domain.IntentModifyReservation:
		return requiredForModifyReservation(collected, modCtx)
	default:
		return dedupeSorted(planningRequiredSlotsByIntent[intent])
	}
}

func requiredForModifyBooking(collected domain.Slots, modCtx *domain.ModificationContext) []domain.SlotKey {
	baseRequired := []domain.SlotKey{domain.SlotBookingID, domain.SlotDate, domain.SlotTime}

	var hasTime, hasDate bool
	if modCtx != nil && !modCtx.IsAbsent() {
		hasTime = modCtx.ModifyingTime
		hasDate = modCtx.ModifyingDate
	} else if modCtx == nil {
		hasTime = collected.Has(domain.SlotTime)
		hasDate = collected.Has(domain.SlotDate)
	}
	// modCtx present but both flags false: ambiguous, falls through to base below.

	var required []domain.SlotKey
	switch {
	case hasTime && !hasDate:
		required = []domain.SlotKey{domain.SlotBookingID, domain.SlotTime}
	case hasDate && !hasTime:
		required = []domain.SlotKey{domain.SlotBookingID, domain.SlotDate}
	case hasTime && hasDate:
		required = []domain.SlotKey{domain.SlotBookingID, domain.SlotDate, domain.SlotTime}
	default:
		required = baseRequired
	}
	return dedupeSorted(required)
}

func requiredForModifyReservation(collected domain.Slots, modCtx *domain.ModificationContext) []domain.SlotKey {
	baseRequired := []domain.SlotKey{domain.SlotBookingID, domain.SlotStartDate, domain.SlotEndDate}

	var hasStart, hasEnd, hasDate bool
	if modCtx != nil && !modCtx.IsAbsent() {
		hasStart = modCtx.ModifyingStartDate
		hasEnd = modCtx.ModifyingEndDate
		hasDate = modCtx.ModifyingDate
	} else if modCtx == nil {
		hasStart = collected.Has(domain.SlotStartDate)
		hasEnd = collected.Has(domain.SlotEndDate)
		hasDate = collected.Has(domain.SlotDate)
	}

	var required []domain.SlotKey
	switch {
	case hasStart || hasEnd:
		required = []domain.SlotKey{domain.SlotBookingID}
		if !hasStart {
			required = append(required, domain.SlotStartDate)
		}
		if !hasEnd {
			required = append(required, domain.SlotEndDate)
		}
	case hasDate:
		// A bare date never satisfies start_date/end_date.
		required = []domain.SlotKey{domain.SlotBookingID, domain.SlotStartDate, domain.SlotEndDate}
	default:
		required = baseRequired
	}
	return dedupeSorted(required)
}

func dedupeSorted(keys []domain.SlotKey) []domain.SlotKey {
	seen := make(map[domain.SlotKey]struct{}, len(keys))
	out := make([]domain.SlotKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// serviceDomainSlots and reservationDomainSlots are the closed, valid
// slot sets per domain. MODIFY_BOOKING extends the service set with
// delta slots.
var serviceDomainSlots = map[domain.SlotKey]struct{}{
	domain.SlotServiceID:   {},
	domain.SlotDate:        {},
	domain.SlotTime:        {},
	domain.SlotHasDatetime: {},
	domain.SlotDateRange:   {},
	domain.SlotBookingID:   {},
}

var reservationDomainSlots = map[domain.SlotKey]struct{}{
	domain.SlotServiceID: {},
	domain.SlotStartDate: {},
	domain.SlotEndDate:   {},
	domain.SlotDateRange: {},
	domain.SlotBookingID: {},
}

var modifyBookingDeltaSlots = map[domain.SlotKey]struct{}{
	domain.SlotStartDate: {},
	domain.SlotEndDate:   {},
	domain.SlotDuration:  {},
}

// DomainSlotSet returns the closed set of slot keys valid for this intent
//. The returned set is never mutated by callers; DomainFilter copies
// from it.
func DomainSlotSet(intent domain.Intent) map[domain.SlotKey]struct{} {
	switch domain.DomainFor(intent) {
	case domain.DomainReservation:
		return reservationDomainSlots
	default:
		out := make(map[domain.SlotKey]struct{}, len(serviceDomainSlots)+len(modifyBookingDeltaSlots))
		for k := range serviceDomainSlots {
			out[k] = struct{}{}
		}
		if intent == domain.IntentModifyBooking {
			for k := range modifyBookingDeltaSlots {
				out[k] = struct{}{}
			}
		}
		return out
	}
}
