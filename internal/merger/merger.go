// Package merger non-destructively combines session state with a fresh
// NLU response into a single NLU-shaped result the rest of the pipeline
// consumes: typed, ordered steps over internal/domain.
package merger

import (
	"sort"
	"strings"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

var datetimeSlots = map[domain.SlotKey]bool{
	domain.SlotDate:          true,
	domain.SlotTime:          true,
	domain.SlotStartDate:     true,
	domain.SlotEndDate:       true,
	domain.SlotDatetimeRange: true,
	domain.SlotDateRange:     true,
}

// satisfierSlots returns the set of missing-slot names that filledSlot
// satisfies once it newly appears in the merged slot bag.
func satisfierSlots(filledSlot domain.SlotKey, intent domain.Intent) []domain.SlotKey {
	switch filledSlot {
	case domain.SlotDate:
		out := []domain.SlotKey{domain.SlotDate}
		if intent == domain.IntentCreateReservation {
			out = append(out, domain.SlotStartDate)
		}
		return out
	case domain.SlotStartDate:
		return []domain.SlotKey{domain.SlotDate, domain.SlotStartDate}
	case domain.SlotEndDate:
		return []domain.SlotKey{domain.SlotEndDate}
	case domain.SlotTime:
		return []domain.SlotKey{domain.SlotTime}
	case domain.SlotDateRange:
		return []domain.SlotKey{domain.SlotDate, domain.SlotDateRange, domain.SlotStartDate, domain.SlotEndDate}
	default:
		return []domain.SlotKey{filledSlot}
	}
}

func slotSatisfiedInMerged(slot domain.SlotKey, merged domain.Slots, intent domain.Intent) bool {
	switch slot {
	case domain.SlotDate:
		return merged.Has(domain.SlotDate) || merged.Has(domain.SlotStartDate) || merged.Has(domain.SlotDateRange)
	case domain.SlotStartDate:
		if merged.Has(domain.SlotStartDate) {
			return true
		}
		return merged.Has(domain.SlotDate) && intent == domain.IntentCreateReservation
	default:
		return merged.Has(slot)
	}
}

// stripDatePart drops any time-of-day component from an ISO
// date/datetime string ("2026-08-01T10:00" -> "2026-08-01").
func stripDatePart(s string) string {
	if i := strings.IndexAny(s, "T "); i >= 0 {
		return s[:i]
	}
	return s
}

func firstSemanticTrace(nlu domain.NLUResponse) *domain.SemanticTrace {
	if nlu.TraceSemantic != nil {
		return nlu.TraceSemantic
	}
	for _, stage := range nlu.Stages {
		if stage.Semantic != nil {
			return stage.Semantic
		}
	}
	return nil
}

// extractSlots gathers slot values from every location the NLU may have
// placed them, in precedence order: direct slots >
// explicit role-tagged dates > semantic.date_refs > entities > booking.
func extractSlots(nlu domain.NLUResponse) domain.Slots {
	out := nlu.Slots.Clone()

	semantic := firstSemanticTrace(nlu)
	var rb *domain.ResolvedBooking
	if semantic != nil {
		rb = semantic.ResolvedBooking
	}
	if rb == nil {
		rb = nlu.ResolvedBooking
	}

	applyDateRefs(&out, rb)
	applyTime(&out, rb)

	if !out.Has(domain.SlotDate) {
		if d, ok := nlu.Entities["date"]; ok && d != "" {
			out.Set(domain.SlotDate, stripDatePart(d))
		}
	}
	if !out.Has(domain.SlotTime) {
		if tm, ok := nlu.Entities["time"]; ok && tm != "" {
			out.Set(domain.SlotTime, tm)
		}
	}

	if !out.Has(domain.SlotDate) && nlu.Booking != nil {
		switch {
		case nlu.Booking.DatetimeRange != nil && nlu.Booking.DatetimeRange.Start != "":
			out.Set(domain.SlotDate, stripDatePart(nlu.Booking.DatetimeRange.Start))
		case nlu.Booking.Date != "":
			out.Set(domain.SlotDate, stripDatePart(nlu.Booking.Date))
		}
	}

	return out
}

func applyDateRefs(out *domain.Slots, rb *domain.ResolvedBooking) {
	if rb == nil || len(rb.DateRefs) == 0 {
		return
	}
	refs := rb.DateRefs
	hasRole := func(role domain.DateRole) bool {
		for _, r := range rb.DateRoles {
			if r == role {
				return true
			}
		}
		return false
	}

	if len(rb.DateRoles) > 0 {
		if hasRole(domain.DateRoleStart) && !out.Has(domain.SlotStartDate) {
			out.Set(domain.SlotStartDate, stripDatePart(refs[0]))
		}
		if hasRole(domain.DateRoleEnd) && !out.Has(domain.SlotEndDate) {
			switch {
			case len(refs) > 1:
				out.Set(domain.SlotEndDate, stripDatePart(refs[len(refs)-1]))
			case out.Has(domain.SlotStartDate):
				out.Set(domain.SlotEndDate, stripDatePart(refs[0]))
			}
		}
	}

	switch rb.DateMode {
	case domain.DateModeRange:
		if out.Has(domain.SlotDateRange) || out.Has(domain.SlotStartDate) {
			return
		}
		switch {
		case len(refs) >= 2:
			out.Set(domain.SlotStartDate, stripDatePart(refs[0]))
			out.Set(domain.SlotEndDate, stripDatePart(refs[len(refs)-1]))
		case len(refs) == 1:
			out.Set(domain.SlotStartDate, stripDatePart(refs[0]))
		}
	default:
		// single_day, flexible, or unset: a bare date_ref lands on `date`
		// unless a range has already claimed start_date.
		if !out.Has(domain.SlotDate) && !out.Has(domain.SlotStartDate) {
			out.Set(domain.SlotDate, stripDatePart(refs[0]))
		}
	}
}

func applyTime(out *domain.Slots, rb *domain.ResolvedBooking) {
	if out.Has(domain.SlotTime) || rb == nil {
		return
	}
	if rb.TimeConstraint != nil {
		tc := rb.TimeConstraint
		if tc.Start != "" {
			out.Set(domain.SlotTime, tc.Start)
		} else if tc.End != "" {
			out.Set(domain.SlotTime, tc.End)
		}
		return
	}
	if len(rb.TimeRefs) > 0 {
		out.Set(domain.SlotTime, rb.TimeRefs[0])
	}
}

func dedupeSortedKeys(keys []domain.SlotKey) []domain.SlotKey {
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

// normalizeModifyBookingMissingSlots enforces the MODIFY_BOOKING contract:
// every datetime-shaped slot is dropped from missing, and booking_id is
// dropped once merged carries it; any other slot stays missing.
func normalizeModifyBookingMissingSlots(missing []domain.SlotKey, intent domain.Intent, merged domain.Slots) []domain.SlotKey {
	if intent != domain.IntentModifyBooking {
		return missing
	}
	// Whether or not this turn shows a datetime-shaped slot, MODIFY_BOOKING
	// never re-demands date/time from missing_slots: only booking_id
	// (when still unresolved) legitimately survives.
	hasBookingID := merged.Has(domain.SlotBookingID)
	normalized := make([]domain.SlotKey, 0, len(missing))
	for _, s := range missing {
		if datetimeSlots[s] {
			continue
		}
		if s == domain.SlotBookingID && hasBookingID {
			continue
		}
		normalized = append(normalized, s)
	}
	return dedupeSortedKeys(normalized)
}

// Merge produces the merged, NLU-shaped response the rest of the
// pipeline consumes. session may be nil (fresh conversation, or already
// reset by the caller on a true intent change).
func Merge(log *logger.Logger, session *domain.SessionState, nlu domain.NLUResponse) domain.NLUResponse {
	merged := nlu

	sessionIntent := session.IntentValue()
	sessionStatus := domain.Status("")
	if session != nil {
		sessionStatus = session.Status
	}
	if session != nil && sessionIntent != domain.IntentUnknown && sessionStatus != domain.StatusReady {
		if merged.Intent.Name == domain.IntentUnknown || merged.Intent.Name == sessionIntent {
			merged.Intent.Name = sessionIntent
		} else if log != nil {
			log.Error("merger observed an intent change that was not reset upstream",
				"session_intent", string(sessionIntent), "nlu_intent", string(merged.Intent.Name))
		}
	}

	extracted := extractSlots(nlu)
	sessionSlots := session.CloneSlots()

	mergedSlots := sessionSlots.Clone()
	mergedSlots.Merge(extracted)

	for _, k := range sessionSlots.Keys() {
		if !mergedSlots.Has(k) {
			if log != nil {
				log.Error("session slot lost during merge, restoring", "slot", string(k))
			}
			v, _ := sessionSlots.Get(k)
			mergedSlots.Set(k, v)
		}
	}
	merged.Slots = mergedSlots

	if merged.Intent.Name == domain.IntentCreateAppointment {
		serviceID := mergedSlots.GetString(domain.SlotServiceID)
		if serviceID != "" {
			if merged.Booking == nil {
				merged.Booking = &domain.BookingSummary{}
			}
			if len(merged.Booking.Services) == 0 {
				merged.Booking.Services = []domain.ServiceMention{{Text: serviceID}}
			}
		}
	}

	sessionMissing := []domain.SlotKey{}
	if session != nil {
		sessionMissing = session.MissingSlots
	}
	filled := make(map[domain.SlotKey]struct{})
	for _, k := range mergedSlots.Keys() {
		if !sessionSlots.Has(k) {
			filled[k] = struct{}{}
		}
	}
	satisfied := make(map[domain.SlotKey]struct{})
	for k := range filled {
		for _, s := range satisfierSlots(k, merged.Intent.Name) {
			satisfied[s] = struct{}{}
		}
	}

	newMissing := make([]domain.SlotKey, 0, len(sessionMissing))
	for _, s := range sessionMissing {
		if _, ok := satisfied[s]; !ok {
			newMissing = append(newMissing, s)
		}
	}
	existing := make(map[domain.SlotKey]struct{}, len(newMissing))
	for _, s := range newMissing {
		existing[s] = struct{}{}
	}
	for _, s := range nlu.MissingSlots {
		if slotSatisfiedInMerged(s, mergedSlots, merged.Intent.Name) {
			continue
		}
		if _, ok := existing[s]; ok {
			continue
		}
		newMissing = append(newMissing, s)
		existing[s] = struct{}{}
	}

	merged.MissingSlots = normalizeModifyBookingMissingSlots(dedupeSortedKeys(newMissing), merged.Intent.Name, mergedSlots)

	if session != nil && sessionIntent != domain.IntentUnknown && sessionStatus != domain.StatusReady &&
		merged.Intent.Name != sessionIntent && log != nil {
		log.Error("merger postcondition violated: merged intent diverged from session intent",
			"session_intent", string(sessionIntent), "merged_intent", string(merged.Intent.Name))
	}

	return merged
}
