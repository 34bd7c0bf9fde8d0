package domain

// IssueKind is the shape an NLU issue takes for a given slot: either a
// bare classification string, or a richer structured payload (e.g.
// ambiguous-meridiem time).
type IssueKind string

const (
	IssueMissing   IssueKind = "missing"
	IssueAmbiguous IssueKind = "ambiguous"
)

// Issue is one entry of nlu.issues: either a plain classification or a
// rich structured payload.
type Issue struct {
	Kind IssueKind
	// Rich carries {raw, start_hour, end_hour, candidates} or similar when
	// the NLU emits more than a bare classification string.
	Rich map[string]any
}

// DateMode classifies how date_refs should be interpreted.
type DateMode string

const (
	DateModeNone     DateMode = "none"
	DateModeSingle   DateMode = "single_day"
	DateModeRange    DateMode = "range"
	DateModeFlexible DateMode = "flexible"
)

// TimeMode classifies how time_refs should be interpreted.
type TimeMode string

const (
	TimeModeNone   TimeMode = "none"
	TimeModeExact  TimeMode = "exact"
	TimeModeRange  TimeMode = "range"
	TimeModeWindow TimeMode = "window"
)

// DateRole tags which endpoint of a range a date_ref occupies.
type DateRole string

const (
	DateRoleStart DateRole = "START_DATE"
	DateRoleEnd   DateRole = "END_DATE"
)

// TimeConstraintMode classifies a time_constraint payload.
type TimeConstraintMode string

const (
	TimeConstraintExact  TimeConstraintMode = "exact"
	TimeConstraintWindow TimeConstraintMode = "window"
	TimeConstraintFuzzy  TimeConstraintMode = "fuzzy"
)

// TimeConstraint is the {mode, start?, end?} shape a time_constraint NLU
// field carries.
type TimeConstraint struct {
	Mode  TimeConstraintMode `json:"mode"`
	Start string             `json:"start,omitempty"`
	End   string             `json:"end,omitempty"`
}

// AnnotationType classifies a service mention in resolved_booking.services.
type AnnotationType string

const (
	AnnotationAlias    AnnotationType = "ALIAS"
	AnnotationFamily   AnnotationType = "FAMILY"
	AnnotationModifier AnnotationType = "MODIFIER"
)

// ServiceMention is one entry of resolved_booking.services.
type ServiceMention struct {
	Text            string         `json:"text"`
	Canonical       string         `json:"canonical"`
	AnnotationType  AnnotationType `json:"annotation_type"`
	TenantServiceID string         `json:"tenant_service_id,omitempty"`
}

// ResolvedBooking is the semantic payload the NLU's trace/stages carry
//. It is what DecisionLayer consumes directly.
type ResolvedBooking struct {
	Services       []ServiceMention `json:"services,omitempty"`
	DateMode       DateMode         `json:"date_mode,omitempty"`
	DateRefs       []string         `json:"date_refs,omitempty"`
	DateRoles      []DateRole       `json:"date_roles,omitempty"`
	DateRange      *DateRange       `json:"date_range,omitempty"`
	TimeMode       TimeMode         `json:"time_mode,omitempty"`
	TimeRefs       []string         `json:"time_refs,omitempty"`
	TimeConstraint *TimeConstraint  `json:"time_constraint,omitempty"`
	BookingMode    Domain           `json:"booking_mode,omitempty"`
}

// HasService reports whether any non-MODIFIER service mention is present.
func (r *ResolvedBooking) HasService() bool {
	if r == nil {
		return false
	}
	for _, s := range r.Services {
		if s.AnnotationType != AnnotationModifier {
			return true
		}
	}
	return false
}

// HasDate reports whether the resolved booking carries any date signal.
func (r *ResolvedBooking) HasDate() bool {
	if r == nil {
		return false
	}
	return len(r.DateRefs) > 0 || r.DateRange != nil
}

// HasTime reports whether the resolved booking carries any time signal.
func (r *ResolvedBooking) HasTime() bool {
	if r == nil {
		return false
	}
	return len(r.TimeRefs) > 0 || r.TimeConstraint != nil
}

// BookingSummary is the booking.{services?, datetime_range?,
// confirmation_state?} sub-object of an NLU response.
type BookingSummary struct {
	Services          []ServiceMention `json:"services,omitempty"`
	DatetimeRange     *DatetimeRange   `json:"datetime_range,omitempty"`
	ConfirmationState string           `json:"confirmation_state,omitempty"`
	Date              string           `json:"date,omitempty"`
}

// DatetimeRange is a {start,end} ISO-datetime pair.
type DatetimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SemanticTrace is one nlu.trace.semantic or nlu.stages[].semantic payload
//: it carries the same shape as ResolvedBooking plus raw
// entity extractions.
type SemanticTrace struct {
	ResolvedBooking *ResolvedBooking  `json:"resolved_booking,omitempty"`
	Entities        map[string]string `json:"entities,omitempty"`
}

// Stage is one nlu.stages[] entry.
type Stage struct {
	Semantic *SemanticTrace `json:"semantic,omitempty"`
}

// IntentResult is the {name, confidence} pair the NLU returns.
type IntentResult struct {
	Name       Intent  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// NLUResponse models the consumed NLU interface. Fields are
// exposed directly rather than through map[string]any accessors.
type NLUResponse struct {
	Intent              IntentResult        `json:"intent"`
	Slots               Slots               `json:"slots"`
	Issues              map[SlotKey]Issue   `json:"issues,omitempty"`
	NeedsClarification  bool                `json:"needs_clarification"`
	ClarificationReason ClarificationReason `json:"clarification_reason,omitempty"`
	ClarificationData   map[string]any      `json:"clarification_data,omitempty"`
	Context             map[string]any      `json:"context,omitempty"`
	TraceSemantic       *SemanticTrace      `json:"trace_semantic,omitempty"`
	Stages              []Stage             `json:"stages,omitempty"`
	Booking             *BookingSummary     `json:"booking,omitempty"`
	ResolvedBooking     *ResolvedBooking    `json:"resolved_booking,omitempty"`
	Entities            map[string]string   `json:"entities,omitempty"`
	MissingSlots        []SlotKey           `json:"missing_slots,omitempty"`
}
