package decision_test

import (
	"testing"

	"github.com/slotwise/dialog-orchestrator/internal/decision"
	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDecide_MissingService(t *testing.T) {
	rb := &domain.ResolvedBooking{}
	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, nil)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonMissingService, result.Reason)
}

func TestDecide_AliasAnnotationIsAuthoritative(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "haircut", Canonical: "haircut", AnnotationType: domain.AnnotationAlias, TenantServiceID: "svc-123"},
		},
		DateMode: domain.DateModeSingle,
		DateRefs: []string{"2026-08-01"},
		TimeMode: domain.TimeModeExact,
		TimeRefs: []string{"14:00"},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, nil)

	assert.Equal(t, domain.DecisionResolved, result.Status)
	assert.Equal(t, "svc-123", result.ResolvedServiceID)
}

func TestDecide_OnlyModifierServiceCollapsesForAppointment(t *testing.T) {
	// Once a service was mentioned, an appointment turn never surfaces
	// MISSING_SERVICE: every resolution failure reads as "the tenant
	// cannot book what was said".
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "deluxe", Canonical: "deluxe", AnnotationType: domain.AnnotationModifier},
		},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, nil)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonUnsupportedService, result.Reason)
}

func TestDecide_OnlyModifierServiceIsMissingForReservation(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "deluxe", Canonical: "deluxe", AnnotationType: domain.AnnotationModifier},
		},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateReservation, nil)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonMissingService, result.Reason)
}

func TestDecide_NoTenantContextIsUnsupportedService(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "haircut", Canonical: "haircut", AnnotationType: domain.AnnotationFamily},
		},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, nil)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonUnsupportedService, result.Reason)
}

func TestDecide_AmbiguousFamilyCollapsesForAppointment(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "massage", Canonical: "massage", AnnotationType: domain.AnnotationFamily},
		},
	}
	tenantCtx := &domain.TenantContext{
		Aliases: map[string]string{
			"swedish-massage": "massage",
			"deep-tissue":     "massage",
		},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, tenantCtx)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonUnsupportedService, result.Reason)
}

func TestDecide_AmbiguousFamilyStaysAmbiguousForReservation(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "room", Canonical: "room", AnnotationType: domain.AnnotationFamily},
		},
	}
	tenantCtx := &domain.TenantContext{
		Aliases: map[string]string{
			"standard": "room",
			"deluxe":   "room",
		},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateReservation, tenantCtx)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonAmbiguousService, result.Reason)
}

func TestDecide_UnambiguousFamilyResolvesToSoleAlias(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "massage", Canonical: "massage", AnnotationType: domain.AnnotationFamily},
		},
		DateMode: domain.DateModeSingle,
		DateRefs: []string{"2026-08-01"},
		TimeMode: domain.TimeModeExact,
		TimeRefs: []string{"14:00"},
	}
	tenantCtx := &domain.TenantContext{
		Aliases: map[string]string{"swedish-massage": "massage"},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, tenantCtx)

	assert.Equal(t, domain.DecisionResolved, result.Status)
	assert.Equal(t, "swedish-massage", result.ResolvedServiceID)
}

func TestDecide_AppointmentMissingDate(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "haircut", Canonical: "haircut", AnnotationType: domain.AnnotationAlias, TenantServiceID: "svc-1"},
		},
		TimeMode: domain.TimeModeExact,
		TimeRefs: []string{"14:00"},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, nil)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonMissingDate, result.Reason)
}

func TestDecide_AppointmentMissingTime(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "haircut", Canonical: "haircut", AnnotationType: domain.AnnotationAlias, TenantServiceID: "svc-1"},
		},
		DateMode: domain.DateModeSingle,
		DateRefs: []string{"2026-08-01"},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, nil)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonMissingTime, result.Reason)
}

func TestDecide_AppointmentFuzzyConstraintAlwaysBlocked(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "haircut", Canonical: "haircut", AnnotationType: domain.AnnotationAlias, TenantServiceID: "svc-1"},
		},
		DateMode:       domain.DateModeSingle,
		DateRefs:       []string{"2026-08-01"},
		TimeConstraint: &domain.TimeConstraint{Mode: domain.TimeConstraintFuzzy},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{AllowConstraintOnlyTime: true}, domain.IntentCreateAppointment, nil)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonMissingTimeFuzzy, result.Reason)
}

func TestDecide_AppointmentWindowBlockedWithoutPolicy(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "haircut", Canonical: "haircut", AnnotationType: domain.AnnotationAlias, TenantServiceID: "svc-1"},
		},
		DateMode:       domain.DateModeSingle,
		DateRefs:       []string{"2026-08-01"},
		TimeConstraint: &domain.TimeConstraint{Mode: domain.TimeConstraintWindow, Start: "09:00", End: "12:00"},
	}

	blocked, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateAppointment, nil)
	assert.Equal(t, domain.DecisionNeedsClarification, blocked.Status)
	assert.Equal(t, domain.ReasonPolicyTimeWindow, blocked.Reason)

	allowed, _ := decision.Decide(rb, nil, decision.Policy{AllowTimeWindows: true}, domain.IntentCreateAppointment, nil)
	assert.Equal(t, domain.DecisionResolved, allowed.Status)
}

func TestDecide_ReservationRequiresDistinctStartAndEnd(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "suite", Canonical: "suite", AnnotationType: domain.AnnotationAlias, TenantServiceID: "svc-1"},
		},
		DateRefs: []string{"2026-08-01"},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateReservation, nil)

	assert.Equal(t, domain.DecisionNeedsClarification, result.Status)
	assert.Equal(t, domain.ReasonMissingEndDate, result.Reason)
}

func TestDecide_ReservationResolvesWithDateRange(t *testing.T) {
	rb := &domain.ResolvedBooking{
		Services: []domain.ServiceMention{
			{Text: "suite", Canonical: "suite", AnnotationType: domain.AnnotationAlias, TenantServiceID: "svc-1"},
		},
		DateRange: &domain.DateRange{Start: "2026-08-01", End: "2026-08-05"},
	}

	result, _ := decision.Decide(rb, nil, decision.Policy{}, domain.IntentCreateReservation, nil)

	assert.Equal(t, domain.DecisionResolved, result.Status)
	assert.Equal(t, "2026-08-01", result.EffectiveTime.Start)
	assert.Equal(t, "2026-08-05", result.EffectiveTime.End)
}

func TestDecide_NonBookingIntentSkipsServiceGate(t *testing.T) {
	result, _ := decision.Decide(nil, nil, decision.Policy{}, domain.IntentCancelBooking, nil)
	assert.Equal(t, domain.DecisionResolved, result.Status)
}
