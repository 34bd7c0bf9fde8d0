// Package promoter derives secondary slots from primary ones. Rules are
// additive and idempotent: a promotion never removes or overwrites an
// existing slot.
package promoter

import "github.com/slotwise/dialog-orchestrator/internal/domain"

// PromoteContext carries the signals Promote needs beyond the slot bag
// itself: the date_roles the NLU tagged for this turn, since a bare
// `date` must never promote to `start_date`/`end_date` without one.
type PromoteContext struct {
	DateRoles []domain.DateRole
}

func (c PromoteContext) hasRole(role domain.DateRole) bool {
	for _, r := range c.DateRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Promote returns slots′ with slots ⊆ slots′.
// Calling Promote twice on its own output is a no-op, since every rule is
// conditional on the target key's absence.
func Promote(slots domain.Slots, intent domain.Intent, ctx PromoteContext) domain.Slots {
	out := slots.Clone()

	switch intent {
	case domain.IntentCreateReservation:
		promoteReservation(&out, ctx)
	case domain.IntentCreateAppointment:
		promoteAppointment(&out)
	}

	// Restoration step: re-insert any input key that a rule above might
	// have disturbed. Rules above only ever call SetIfAbsent, so this is
	// a defensive no-op in the common case, but it is cheap and it is
	// what catches a future rule that forgets the absence check.
	for _, k := range slots.Keys() {
		if !out.Has(k) {
			v, _ := slots.Get(k)
			out.Set(k, v)
		}
	}

	return out
}

func promoteReservation(slots *domain.Slots, ctx PromoteContext) {
	if dr, ok := slots.GetDateRange(domain.SlotDateRange); ok {
		slots.SetIfAbsent(domain.SlotStartDate, dr.Start)
		slots.SetIfAbsent(domain.SlotEndDate, dr.End)
	}
	if date, ok := slots.Get(domain.SlotDate); ok {
		if ctx.hasRole(domain.DateRoleStart) {
			slots.SetIfAbsent(domain.SlotStartDate, date)
		}
		if ctx.hasRole(domain.DateRoleEnd) {
			slots.SetIfAbsent(domain.SlotEndDate, date)
		}
		// A date without a role never promotes to start_date/end_date.
	}
}

func promoteAppointment(slots *domain.Slots) {
	if dr, ok := slots.GetDateRange(domain.SlotDateRange); ok && !slots.Has(domain.SlotDate) {
		slots.SetIfAbsent(domain.SlotDate, dr.Start)
	}
	if slots.Has(domain.SlotDate) && slots.Has(domain.SlotTime) {
		slots.SetIfAbsent(domain.SlotHasDatetime, true)
	}
}
