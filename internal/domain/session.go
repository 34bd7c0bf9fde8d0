package domain

// ModificationContext flags which dimensions a MODIFY_* turn intends to
// change. A nil/zero ModificationContext means "absent" per the
// context-narrowing table.
type ModificationContext struct {
	ModifyingDate      bool `json:"modifying_date,omitempty"`
	ModifyingTime      bool `json:"modifying_time,omitempty"`
	ModifyingStartDate bool `json:"modifying_start_date,omitempty"`
	ModifyingEndDate   bool `json:"modifying_end_date,omitempty"`
}

// IsAbsent reports whether no modification flag is set, i.e. the
// modification_context itself was never provided.
func (m *ModificationContext) IsAbsent() bool {
	return m == nil || (!m.ModifyingDate && !m.ModifyingTime && !m.ModifyingStartDate && !m.ModifyingEndDate)
}

// SessionState is what is persisted per (domain, user_id) between turns
//. It is the only mutable, cross-turn state the core owns.
type SessionState struct {
	Intent                   Intent                `json:"intent"`
	Slots                    Slots                 `json:"slots"`
	MissingSlots             []SlotKey             `json:"missing_slots"`
	Status                   Status                `json:"status"`
	AwaitingSlot             *SlotKey              `json:"awaiting_slot,omitempty"`
	ModificationContext      *ModificationContext  `json:"modification_context,omitempty"`
	ResolvedBookingSemantics *ResolvedBooking      `json:"resolved_booking_semantics,omitempty"`
	Clarification            *ClarificationOutcome `json:"clarification,omitempty"`
}

// Reset returns a fresh, empty session state, used on intent change and
// on READY/EXECUTED clearing.
func Reset() *SessionState {
	return nil
}

// CloneSlots returns the session's slot bag, or an empty one if the
// session itself is nil (new conversation).
func (s *SessionState) CloneSlots() Slots {
	if s == nil {
		return NewSlots()
	}
	return s.Slots.Clone()
}

// AwaitingSlotValue returns the awaited slot and whether one is set.
func (s *SessionState) AwaitingSlotValue() (SlotKey, bool) {
	if s == nil || s.AwaitingSlot == nil {
		return "", false
	}
	return *s.AwaitingSlot, true
}

// IntentValue returns the session's intent, or IntentUnknown if nil.
func (s *SessionState) IntentValue() Intent {
	if s == nil {
		return IntentUnknown
	}
	return s.Intent
}
