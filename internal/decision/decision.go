// Package decision implements the DecisionLayer: tenant-authoritative
// service resolution plus temporal-shape validation, producing a pure
// DecisionResult from a resolved booking and tenant context.
package decision

import (
	"github.com/slotwise/dialog-orchestrator/internal/domain"
)

// Policy carries the tenant-configurable time-handling knobs.
type Policy struct {
	AllowTimeWindows        bool
	AllowConstraintOnlyTime bool
}

// Trace is a small debug record of which branch Decide took. It is
// returned beside the DecisionResult and is not part of it; the
// orchestrator discards it and the audit log does not record it.
type Trace struct {
	ServiceResolutionStep string
	TemporalCheck         string
}

// Decide runs the service gate, then temporal-shape
// validation, then policy hooks, producing RESOLVED only when every gate
// passes.
func Decide(resolvedBooking *domain.ResolvedBooking, entities map[string]string, policy Policy, intent domain.Intent, tenantCtx *domain.TenantContext) (domain.DecisionResult, Trace) {
	trace := Trace{}

	serviceID, serviceReason, serviceOK := resolveService(resolvedBooking, intent, tenantCtx, &trace)
	if !serviceOK {
		return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: serviceReason}, trace
	}

	switch domain.TemporalShapeFor(intent) {
	case domain.TemporalShapeDatetimeRange:
		return decideAppointmentTime(resolvedBooking, policy, serviceID, &trace)
	case domain.TemporalShapeDateRange:
		return decideReservationRange(resolvedBooking, serviceID, &trace)
	default:
		// Non-booking intents (inquiry, cancel, etc.) have no temporal
		// shape to validate; service resolution alone (if it ran) decides.
		return domain.DecisionResult{Status: domain.DecisionResolved, ResolvedServiceID: serviceID}, trace
	}
}

// resolveService implements the ordered, strict resolution ladder. Returns the
// resolved tenant service id (possibly empty for non-booking intents
// with no service mention at all) and whether resolution succeeded.
//
// A CREATE_APPOINTMENT turn with no service mention at all gets
// MISSING_SERVICE; once a service was mentioned, CREATE_APPOINTMENT only
// surfaces UNSUPPORTED_SERVICE on failure: it accepts an extracted canonical service without tenant resolution
// only when cardinality>0, so once a service was mentioned at all, any
// way resolution can fail means the tenant cannot book what was said.
// failureReason applies that collapse; reservations keep the specific
// reason.
func resolveService(rb *domain.ResolvedBooking, intent domain.Intent, tenantCtx *domain.TenantContext, trace *Trace) (string, domain.ClarificationReason, bool) {
	if rb == nil || len(rb.Services) == 0 {
		if !domain.ProducesBookingPayload(intent) {
			trace.ServiceResolutionStep = "skipped_non_booking_intent"
			return "", "", true
		}
		trace.ServiceResolutionStep = "missing_service_no_payload"
		return "", domain.ReasonMissingService, false
	}

	nonModifier := make([]domain.ServiceMention, 0, len(rb.Services))
	for _, s := range rb.Services {
		if s.AnnotationType != domain.AnnotationModifier {
			nonModifier = append(nonModifier, s)
		}
	}
	if len(nonModifier) == 0 {
		trace.ServiceResolutionStep = "missing_service_only_modifiers"
		return "", failureReason(intent, domain.ReasonMissingService), false
	}

	// Step 2: an explicit ALIAS annotation with a tenant_service_id is
	// authoritative; no ambiguity check, ever.
	for _, s := range nonModifier {
		if s.AnnotationType == domain.AnnotationAlias && s.TenantServiceID != "" {
			trace.ServiceResolutionStep = "alias_authoritative"
			return s.TenantServiceID, "", true
		}
	}

	canonicalFamilies := make([]string, 0, len(nonModifier))
	seenFamily := make(map[string]struct{})
	for _, s := range nonModifier {
		if s.Canonical == "" {
			continue
		}
		if _, ok := seenFamily[s.Canonical]; ok {
			continue
		}
		seenFamily[s.Canonical] = struct{}{}
		canonicalFamilies = append(canonicalFamilies, s.Canonical)
	}
	if len(canonicalFamilies) == 0 {
		trace.ServiceResolutionStep = "missing_service_no_canonical"
		return "", failureReason(intent, domain.ReasonMissingService), false
	}

	if !tenantCtx.Valid() {
		trace.ServiceResolutionStep = "unsupported_service_no_tenant_context"
		return "", domain.ReasonUnsupportedService, false
	}

	familyToTenantIDs := tenantCtx.InvertAliases()
	uniqueTenantServices := make(map[string]struct{})
	ambiguousFamily := false
	for _, family := range canonicalFamilies {
		ids := familyToTenantIDs[family]
		if len(ids) >= 2 {
			ambiguousFamily = true
		}
		for _, id := range ids {
			uniqueTenantServices[id] = struct{}{}
		}
	}

	switch len(uniqueTenantServices) {
	case 0:
		trace.ServiceResolutionStep = "unsupported_service_no_alias_match"
		return "", domain.ReasonUnsupportedService, false
	default:
		if len(uniqueTenantServices) >= 2 || ambiguousFamily {
			trace.ServiceResolutionStep = "ambiguous_service"
			return "", failureReason(intent, domain.ReasonAmbiguousService), false
		}
		for id := range uniqueTenantServices {
			trace.ServiceResolutionStep = "resolved_single_tenant_service"
			return id, "", true
		}
	}
	trace.ServiceResolutionStep = "unsupported_service_fallthrough"
	return "", domain.ReasonUnsupportedService, false
}

// failureReason collapses every service-resolution failure to
// UNSUPPORTED_SERVICE for CREATE_APPOINTMENT; other intents keep the
// specific reason.
func failureReason(intent domain.Intent, reason domain.ClarificationReason) domain.ClarificationReason {
	if intent == domain.IntentCreateAppointment {
		return domain.ReasonUnsupportedService
	}
	return reason
}

func decideAppointmentTime(rb *domain.ResolvedBooking, policy Policy, serviceID string, trace *Trace) (domain.DecisionResult, Trace) {
	if rb == nil || !validAppointmentDateMode(rb) {
		trace.TemporalCheck = "missing_date"
		return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: domain.ReasonMissingDate}, *trace
	}

	hasTimeConstraint := rb.TimeConstraint != nil && rb.TimeConstraint.Mode != ""
	hasTimeRefs := (rb.TimeMode == domain.TimeModeExact || rb.TimeMode == domain.TimeModeRange || rb.TimeMode == domain.TimeModeWindow) && len(rb.TimeRefs) > 0
	if !hasTimeConstraint && !hasTimeRefs {
		trace.TemporalCheck = "missing_time"
		return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: domain.ReasonMissingTime}, *trace
	}

	if hasTimeConstraint {
		switch rb.TimeConstraint.Mode {
		case domain.TimeConstraintWindow:
			if !policy.AllowTimeWindows {
				trace.TemporalCheck = "policy_time_window"
				return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: domain.ReasonPolicyTimeWindow}, *trace
			}
		case domain.TimeConstraintFuzzy:
			// reservations may accept fuzzy; service (appointment) may not.
			trace.TemporalCheck = "missing_time_fuzzy"
			return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: domain.ReasonMissingTimeFuzzy}, *trace
		case domain.TimeConstraintExact:
			if !policy.AllowConstraintOnlyTime && !hasTimeRefs {
				trace.TemporalCheck = "policy_constraint_only_time"
				return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: domain.ReasonPolicyConstraintOnly}, *trace
			}
		}
	} else if rb.TimeMode == domain.TimeModeWindow && !policy.AllowTimeWindows {
		trace.TemporalCheck = "policy_time_window"
		return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: domain.ReasonPolicyTimeWindow}, *trace
	}

	trace.TemporalCheck = "resolved"
	return domain.DecisionResult{
		Status:            domain.DecisionResolved,
		ResolvedServiceID: serviceID,
		EffectiveTime:     effectiveTime(rb),
	}, *trace
}

func validAppointmentDateMode(rb *domain.ResolvedBooking) bool {
	if rb.DateMode != domain.DateModeSingle && rb.DateMode != domain.DateModeRange {
		return false
	}
	return len(rb.DateRefs) > 0
}

func decideReservationRange(rb *domain.ResolvedBooking, serviceID string, trace *Trace) (domain.DecisionResult, Trace) {
	start, end, ok := reservationAnchors(rb)
	if ok && start == end {
		// Equal endpoints do not give a distinct end anchor.
		end, ok = "", false
	}
	if !ok {
		if start == "" {
			trace.TemporalCheck = "missing_start_date"
			return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: domain.ReasonMissingStartDate}, *trace
		}
		trace.TemporalCheck = "missing_end_date"
		return domain.DecisionResult{Status: domain.DecisionNeedsClarification, Reason: domain.ReasonMissingEndDate}, *trace
	}

	trace.TemporalCheck = "resolved"
	return domain.DecisionResult{
		Status:            domain.DecisionResolved,
		ResolvedServiceID: serviceID,
		EffectiveTime: &domain.EffectiveTime{
			Mode:   "range",
			Source: "primary",
			Start:  start,
			End:    end,
		},
	}, *trace
}

// reservationAnchors returns (start, end, ok): at least one
// start anchor and one distinct end anchor, either two absolute
// date_refs or date_mode=range with both endpoints.
func reservationAnchors(rb *domain.ResolvedBooking) (string, string, bool) {
	if rb == nil {
		return "", "", false
	}
	if rb.DateRange != nil && rb.DateRange.Start != "" && rb.DateRange.End != "" {
		return rb.DateRange.Start, rb.DateRange.End, true
	}
	if rb.DateMode == domain.DateModeRange && len(rb.DateRefs) >= 2 {
		return rb.DateRefs[0], rb.DateRefs[len(rb.DateRefs)-1], true
	}
	if len(rb.DateRefs) >= 2 {
		return rb.DateRefs[0], rb.DateRefs[len(rb.DateRefs)-1], true
	}
	if len(rb.DateRefs) == 1 {
		return rb.DateRefs[0], "", false
	}
	return "", "", false
}

// effectiveTime builds the {mode, source} resolution from the first
// available of: time_constraint, exact time_refs, window, range.
func effectiveTime(rb *domain.ResolvedBooking) *domain.EffectiveTime {
	if rb.TimeConstraint != nil && rb.TimeConstraint.Mode == domain.TimeConstraintExact {
		return &domain.EffectiveTime{Mode: "exact", Source: "constraint", Value: rb.TimeConstraint.Start}
	}
	if rb.TimeMode == domain.TimeModeExact && len(rb.TimeRefs) > 0 {
		return &domain.EffectiveTime{Mode: "exact", Source: "primary", Value: rb.TimeRefs[0]}
	}
	if rb.TimeMode == domain.TimeModeWindow && len(rb.TimeRefs) > 0 {
		return &domain.EffectiveTime{Mode: "window", Source: "window", Value: rb.TimeRefs[0]}
	}
	if rb.TimeMode == domain.TimeModeRange && len(rb.TimeRefs) > 0 {
		return &domain.EffectiveTime{Mode: "exact", Source: "primary", Value: rb.TimeRefs[0]}
	}
	if rb.TimeConstraint != nil {
		return &domain.EffectiveTime{Mode: string(rb.TimeConstraint.Mode), Source: "constraint", Value: rb.TimeConstraint.Start}
	}
	return nil
}
