package intentresolver_test

import (
	"testing"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/intentresolver"
	"github.com/slotwise/dialog-orchestrator/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadFrom("../../configs")
	require.NoError(t, err)
	return reg
}

func TestResolve_SignalBeatsBookingMode(t *testing.T) {
	reg := testRegistry(t)

	res := intentresolver.Resolve(reg, "please cancel my booking", nil, domain.DomainService)

	assert.Equal(t, domain.IntentCancelBooking, res.Intent)
}

func TestResolve_NoSignalFallsBackToBookingMode(t *testing.T) {
	reg := testRegistry(t)

	res := intentresolver.Resolve(reg, "book a haircut for friday", nil, domain.DomainService)
	assert.Equal(t, domain.IntentCreateAppointment, res.Intent)

	res = intentresolver.Resolve(reg, "book a room for march", nil, domain.DomainReservation)
	assert.Equal(t, domain.IntentCreateReservation, res.Intent)
}

func TestResolve_AnyUsesWholeWordBoundary(t *testing.T) {
	reg := testRegistry(t)

	// "booking status" must not trigger a substring hit against "book"-ish
	// signals from another intent; it should land on BOOKING_INQUIRY via
	// its own "status" signal instead of misclassifying.
	res := intentresolver.Resolve(reg, "what is the booking status", nil, domain.DomainService)
	assert.Equal(t, domain.IntentBookingInquiry, res.Intent)
}

func TestResolve_PriorityOrderPaymentBeatsCancel(t *testing.T) {
	reg := testRegistry(t)

	res := intentresolver.Resolve(reg, "i want to pay now and cancel later", nil, domain.DomainService)
	assert.Equal(t, domain.IntentPayment, res.Intent)
}

func TestResolve_ConfidenceGradedByRequiredSlotPresence(t *testing.T) {
	reg := testRegistry(t)

	withEntity := intentresolver.Resolve(reg, "cancel my booking", map[string]string{"booking_id": "abc"}, domain.DomainService)
	withoutEntity := intentresolver.Resolve(reg, "cancel my booking", nil, domain.DomainService)

	assert.Greater(t, withEntity.Confidence, withoutEntity.Confidence)
}

func TestResolve_UnknownBookingModeYieldsUnknown(t *testing.T) {
	reg := testRegistry(t)

	res := intentresolver.Resolve(reg, "hello there", nil, domain.Domain(""))
	assert.Equal(t, domain.IntentUnknown, res.Intent)
}
