package domain

// Intent is the canonical tag a turn resolves to. It is immutable within
// a session: any true change of intent forces a session reset before the
// merge step.
type Intent string

const (
	IntentCreateAppointment Intent = "CREATE_APPOINTMENT"
	IntentCreateReservation Intent = "CREATE_RESERVATION"
	IntentModifyBooking     Intent = "MODIFY_BOOKING"
	IntentModifyReservation Intent = "MODIFY_RESERVATION"
	IntentCancelBooking     Intent = "CANCEL_BOOKING"
	IntentBookingInquiry    Intent = "BOOKING_INQUIRY"
	IntentAvailability      Intent = "AVAILABILITY"
	IntentDetails           Intent = "DETAILS"
	IntentQuote             Intent = "QUOTE"
	IntentDiscovery         Intent = "DISCOVERY"
	IntentRecommendation    Intent = "RECOMMENDATION"
	IntentPayment           Intent = "PAYMENT"
	IntentUnknown           Intent = "UNKNOWN"

	// intentContextualUpdate marks a turn that continues a live create
	// draft with at least one mutable slot. It never leaves the orchestrator
	// and is never assigned to SessionState.Intent.
	intentContextualUpdate Intent = "CONTEXTUAL_UPDATE"
)

// TemporalShape is the time/date dimension an intent demands.
type TemporalShape string

const (
	TemporalShapeNone          TemporalShape = ""
	TemporalShapeDatetimeRange TemporalShape = "datetime_range"
	TemporalShapeDateRange     TemporalShape = "date_range"
)

// TemporalShapeFor returns the temporal shape an intent requires
// (TemporalShapeNone for intents without one).
func TemporalShapeFor(intent Intent) TemporalShape {
	switch intent {
	case IntentCreateAppointment, IntentModifyBooking:
		return TemporalShapeDatetimeRange
	case IntentCreateReservation, IntentModifyReservation:
		return TemporalShapeDateRange
	default:
		return TemporalShapeNone
	}
}

// ProducesBookingPayload reports whether the intent is expected to carry
// a resolved_booking semantic payload from the NLU.
func ProducesBookingPayload(intent Intent) bool {
	switch intent {
	case IntentCreateAppointment, IntentCreateReservation, IntentModifyBooking, IntentModifyReservation:
		return true
	default:
		return false
	}
}

// Domain is the booking domain a turn belongs to.
type Domain string

const (
	DomainService     Domain = "service"
	DomainReservation Domain = "reservation"
)

// DomainFor resolves the domain pinned by an intent. Returns "" when
// the intent does not pin a domain on its own.
func DomainFor(intent Intent) Domain {
	switch intent {
	case IntentCreateAppointment, IntentModifyBooking:
		return DomainService
	case IntentCreateReservation, IntentModifyReservation:
		return DomainReservation
	default:
		return ""
	}
}

// IsResetIntent reports whether landing on this intent clears any live
// session outright.
func IsResetIntent(intent Intent) bool {
	switch intent {
	case IntentCancelBooking:
		return true
	default:
		return false
	}
}
