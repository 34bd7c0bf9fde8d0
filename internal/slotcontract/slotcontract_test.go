package slotcontract_test

import (
	"testing"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/slotcontract"
	"github.com/stretchr/testify/assert"
)

func TestRequiredPlanningSlots_StaticIntents(t *testing.T) {
	cases := []struct {
		name   string
		intent domain.Intent
		want   []domain.SlotKey
	}{
		{"create appointment", domain.IntentCreateAppointment, []domain.SlotKey{domain.SlotServiceID, domain.SlotDate, domain.SlotTime}},
		{"create reservation", domain.IntentCreateReservation, []domain.SlotKey{domain.SlotServiceID, domain.SlotStartDate, domain.SlotEndDate}},
		{"cancel booking", domain.IntentCancelBooking, []domain.SlotKey{domain.SlotBookingID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := slotcontract.RequiredPlanningSlots(tc.intent, domain.NewSlots(), nil)
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestRequiredPlanningSlots_ModifyBooking_NoContext(t *testing.T) {
	t.Run("no collected slots falls back to base", func(t *testing.T) {
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyBooking, domain.NewSlots(), nil)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotDate, domain.SlotTime}, got)
	})

	t.Run("collected time only narrows to time", func(t *testing.T) {
		slots := domain.NewSlots()
		slots.Set(domain.SlotTime, "14:00")
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyBooking, slots, nil)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotTime}, got)
	})

	t.Run("collected date only narrows to date", func(t *testing.T) {
		slots := domain.NewSlots()
		slots.Set(domain.SlotDate, "2026-08-01")
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyBooking, slots, nil)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotDate}, got)
	})

	t.Run("collected both requires both", func(t *testing.T) {
		slots := domain.NewSlots()
		slots.Set(domain.SlotDate, "2026-08-01")
		slots.Set(domain.SlotTime, "14:00")
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyBooking, slots, nil)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotDate, domain.SlotTime}, got)
	})
}

func TestRequiredPlanningSlots_ModifyBooking_WithContext(t *testing.T) {
	t.Run("context authoritative over collected slots", func(t *testing.T) {
		slots := domain.NewSlots()
		slots.Set(domain.SlotDate, "2026-08-01")
		slots.Set(domain.SlotTime, "14:00")
		ctx := &domain.ModificationContext{ModifyingTime: true}
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyBooking, slots, ctx)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotTime}, got)
	})

	t.Run("context present but both flags false falls back to base", func(t *testing.T) {
		ctx := &domain.ModificationContext{}
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyBooking, domain.NewSlots(), ctx)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotDate, domain.SlotTime}, got)
	})
}

func TestRequiredPlanningSlots_ModifyReservation(t *testing.T) {
	t.Run("no context, no collected slots falls back to base", func(t *testing.T) {
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyReservation, domain.NewSlots(), nil)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotStartDate, domain.SlotEndDate}, got)
	})

	t.Run("modifying start date only requires the missing end date", func(t *testing.T) {
		ctx := &domain.ModificationContext{ModifyingStartDate: true}
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyReservation, domain.NewSlots(), ctx)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotStartDate}, got)
	})

	t.Run("modifying both start and end requires neither back", func(t *testing.T) {
		ctx := &domain.ModificationContext{ModifyingStartDate: true, ModifyingEndDate: true}
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyReservation, domain.NewSlots(), ctx)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID}, got)
	})

	t.Run("generic date never satisfies start or end date", func(t *testing.T) {
		ctx := &domain.ModificationContext{ModifyingDate: true}
		got := slotcontract.RequiredPlanningSlots(domain.IntentModifyReservation, domain.NewSlots(), ctx)
		assert.ElementsMatch(t, []domain.SlotKey{domain.SlotBookingID, domain.SlotStartDate, domain.SlotEndDate}, got)
	})
}

func TestDomainSlotSet(t *testing.T) {
	t.Run("create appointment is scoped to the service domain", func(t *testing.T) {
		set := slotcontract.DomainSlotSet(domain.IntentCreateAppointment)
		_, hasTime := set[domain.SlotTime]
		_, hasStartDate := set[domain.SlotStartDate]
		assert.True(t, hasTime)
		assert.False(t, hasStartDate)
	})

	t.Run("modify booking admits delta slots the base service domain does not", func(t *testing.T) {
		base := slotcontract.DomainSlotSet(domain.IntentCreateAppointment)
		extended := slotcontract.DomainSlotSet(domain.IntentModifyBooking)
		_, baseHasDuration := base[domain.SlotDuration]
		_, extendedHasDuration := extended[domain.SlotDuration]
		assert.False(t, baseHasDuration)
		assert.True(t, extendedHasDuration)
	})

	t.Run("create reservation is scoped to the reservation domain", func(t *testing.T) {
		set := slotcontract.DomainSlotSet(domain.IntentCreateReservation)
		_, hasStartDate := set[domain.SlotStartDate]
		_, hasTime := set[domain.SlotTime]
		assert.True(t, hasStartDate)
		assert.False(t, hasTime)
	})
}
