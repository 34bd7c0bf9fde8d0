// Package orchestrator drives one conversational turn end to end: load
// session, call the NLU, merge, promote, filter, finalize, decide, plan,
// then either dispatch the committed action or ask the user for what is
// still missing, persisting session state for the next turn. It is the
// only stateful node; every layer it calls is a pure function over
// explicit inputs.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/dialog-orchestrator/internal/clarification"
	"github.com/slotwise/dialog-orchestrator/internal/client"
	"github.com/slotwise/dialog-orchestrator/internal/decision"
	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/intentresolver"
	"github.com/slotwise/dialog-orchestrator/internal/merger"
	"github.com/slotwise/dialog-orchestrator/internal/planbuilder"
	"github.com/slotwise/dialog-orchestrator/internal/promoter"
	"github.com/slotwise/dialog-orchestrator/internal/registry"
	"github.com/slotwise/dialog-orchestrator/internal/sessionstore"
	"github.com/slotwise/dialog-orchestrator/internal/slotcontract"
	"github.com/slotwise/dialog-orchestrator/internal/turnfinalizer"
	"github.com/slotwise/dialog-orchestrator/pkg/events"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
	"github.com/slotwise/dialog-orchestrator/pkg/tenant"
)

// TurnRequest is the per-turn input surface.
type TurnRequest struct {
	UserID        string                `json:"user_id"`
	Text          string                `json:"text"`
	Domain        domain.Domain         `json:"domain"`
	Timezone      string                `json:"timezone"`
	TenantID      string                `json:"tenant_id,omitempty"`
	TenantContext *domain.TenantContext `json:"tenant_context,omitempty"`
	PhoneNumber   string                `json:"phone_number,omitempty"`
	Email         string                `json:"email,omitempty"`
	CustomerID    string                `json:"customer_id,omitempty"`
}

// BookingOutcome is the booking sub-object of an outcome.
type BookingOutcome struct {
	ConfirmationState string `json:"confirmation_state"`
}

// Facts carries the slot-level view attached to clarification outcomes.
type Facts struct {
	Slots        domain.Slots   `json:"slots"`
	MissingSlots []string       `json:"missing_slots"`
	Context      map[string]any `json:"context,omitempty"`
}

// Outcome is the per-status result shape.
type Outcome struct {
	Status              domain.Status              `json:"status"`
	IntentName          domain.Intent              `json:"intent_name"`
	ActionName          string                     `json:"action_name,omitempty"`
	BookingCode         string                     `json:"booking_code,omitempty"`
	Booking             *BookingOutcome            `json:"booking,omitempty"`
	Slots               domain.Slots               `json:"slots"`
	Awaiting            string                     `json:"awaiting,omitempty"`
	ClarificationReason domain.ClarificationReason `json:"clarification_reason,omitempty"`
	TemplateKey         string                     `json:"template_key,omitempty"`
	Data                map[string]any             `json:"data,omitempty"`
	Context             map[string]any             `json:"context,omitempty"`
	Facts               *Facts                     `json:"facts,omitempty"`
}

// TurnResponse is what a turn returns to the transport layer.
type TurnResponse struct {
	Success bool             `json:"success"`
	Outcome *Outcome         `json:"outcome,omitempty"`
	Error   domain.ErrorCode `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Orchestrator wires the pure pipeline layers to the stateful
// collaborators: session store, NLU, execution backend, audit log and
// event bus.
type Orchestrator struct {
	nlu        client.NLUProvider
	executor   client.ExecutionBackend
	store      sessionstore.Store
	registry   *registry.Registry
	tenants    *tenant.Registry
	publisher  *events.Publisher
	audit      auditRecorder
	policy     decision.Policy
	sessionTTL time.Duration
	logger     *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// auditRecorder is the slice of internal/auditlog.Repository the
// orchestrator needs, kept as an interface so tests run without Postgres.
type auditRecorder interface {
	Record(turnID, userID string, d domain.Domain, turn *domain.TurnState, actionName string)
}

// Options bundles the optional collaborators.
type Options struct {
	Publisher *events.Publisher
	AuditLog  auditRecorder
	Policy    decision.Policy
}

// New creates an orchestrator.
func New(nlu client.NLUProvider, executor client.ExecutionBackend, store sessionstore.Store,
	reg *registry.Registry, tenants *tenant.Registry, sessionTTL time.Duration,
	log *logger.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		nlu:        nlu,
		executor:   executor,
		store:      store,
		registry:   reg,
		tenants:    tenants,
		publisher:  opts.Publisher,
		audit:      opts.AuditLog,
		policy:     opts.Policy,
		sessionTTL: sessionTTL,
		logger:     log,
		locks:      make(map[string]*sync.Mutex),
	}
}

// conversationLock serializes turns per (user_id, domain): the session
// is a single-writer resource per conversation.
func (o *Orchestrator) conversationLock(userID string, d domain.Domain) *sync.Mutex {
	key := string(d) + ":" + userID
	o.mu.Lock()
	defer o.mu.Unlock()
	if l, ok := o.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	o.locks[key] = l
	return l
}

// HandleTurn runs one full turn. The context's deadline bounds every
// external call; on timeout the turn fails closed with
// NEEDS_CLARIFICATION and no session mutation.
func (o *Orchestrator) HandleTurn(ctx context.Context, req *TurnRequest) *TurnResponse {
	lock := o.conversationLock(req.UserID, req.Domain)
	lock.Lock()
	defer lock.Unlock()

	turnID := uuid.New().String()
	log := o.logger.With("turn_id", turnID, "user_id", req.UserID, "domain", string(req.Domain))

	tenantCtx := o.tenants.ResolveContext(req.TenantID, req.TenantContext)
	bookingMode := req.Domain
	if tenantCtx != nil && tenantCtx.BookingMode != "" {
		bookingMode = tenantCtx.BookingMode
	}

	session, _ := o.store.Get(ctx, req.Domain, req.UserID)

	nluResp, err := o.nlu.Resolve(ctx, req.UserID, req.Text, req.Domain, req.Timezone, tenantCtx)
	if err != nil {
		code := domain.ErrorNLUUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = domain.ErrorNLUTimeout
		}
		log.Error("nlu resolve failed, failing closed", "error", err)
		return o.errorResponse(code, domain.IntentUnknown)
	}

	if nluResp.Intent.Name == "" || nluResp.Intent.Name == domain.IntentUnknown {
		resolved := intentresolver.Resolve(o.registry, req.Text, nluResp.Entities, bookingMode)
		if resolved.Intent == domain.IntentUnknown && session == nil {
			return o.errorResponse(domain.ErrorMissingIntent, domain.IntentUnknown)
		}
		if resolved.Intent != domain.IntentUnknown {
			nluResp.Intent = domain.IntentResult{Name: resolved.Intent, Confidence: resolved.Confidence}
		}
	}
	if !knownIntent(nluResp.Intent.Name) {
		return o.errorResponse(domain.ErrorUnsupportedIntent, nluResp.Intent.Name)
	}

	// Intent reconciliation: a true intent change hard-resets the
	// session before merge, unless the turn is a contextual update of a
	// live create draft (mutable slots only, no new service mention).
	if session != nil && session.Intent != "" && session.Intent != domain.IntentUnknown &&
		nluResp.Intent.Name != domain.IntentUnknown && nluResp.Intent.Name != session.Intent {
		if isContextualUpdate(session, nluResp) {
			log.Debug("contextual update of live draft, continuing session",
				"session_intent", string(session.Intent), "nlu_intent", string(nluResp.Intent.Name))
			nluResp.Intent.Name = session.Intent
		} else {
			log.Info("intent change detected, resetting session",
				"old_intent", string(session.Intent), "new_intent", string(nluResp.Intent.Name))
			_ = o.store.Clear(ctx, req.Domain, req.UserID)
			session = nil
		}
	}

	merged := merger.Merge(log, session, *nluResp)
	intent := merged.Intent.Name

	rb := resolvedBookingOf(&merged)
	promoted := promoter.Promote(merged.Slots, intent, promoteContext(rb))

	var awaitingBefore *domain.SlotKey
	if session != nil {
		awaitingBefore = session.AwaitingSlot
	}
	fin := turnfinalizer.Finalize(log, intent, promoted, nluResp.Slots, awaitingBefore)

	dec, _ := decision.Decide(rb, merged.Entities, o.policy, intent, tenantCtx)

	// The resolved tenant service id (always an alias key) backfills the
	// service_id slot when the NLU only surfaced a canonical mention.
	if dec.ResolvedServiceID != "" {
		fin.EffectiveSlots.SetIfAbsent(domain.SlotServiceID, dec.ResolvedServiceID)
		if contains(fin.MissingSlots, domain.SlotServiceID) {
			fin.MissingSlots = remove(fin.MissingSlots, domain.SlotServiceID)
			fin.AwaitingSlotAfter = clearIfMatches(fin.AwaitingSlotAfter, domain.SlotServiceID)
			if len(fin.MissingSlots) == 0 && fin.AwaitingSlotAfter == nil {
				fin.Status = domain.StatusReady
			}
		}
	}

	turn := &domain.TurnState{
		Intent:             intent,
		RawNLUSlots:        nluResp.Slots,
		MergedSessionSlots: merged.Slots,
		PromotedSlots:      promoted,
		EffectiveSlots:     fin.EffectiveSlots,
		RequiredSlots:      slotcontract.RequiredPlanningSlots(intent, fin.EffectiveSlots, fin.ModificationContext),
		MissingSlots:       fin.MissingSlots,
		AwaitingSlotBefore: fin.AwaitingSlotBefore,
		AwaitingSlotAfter:  fin.AwaitingSlotAfter,
		Status:             fin.Status,
		DecisionReason:     string(dec.Reason),
	}

	confirmationState := ""
	if merged.Booking != nil {
		confirmationState = merged.Booking.ConfirmationState
	}
	plan := planbuilder.Build(o.registry, intent, turn, merged.NeedsClarification, confirmationState)

	// A plan that looks READY still yields to the decision layer's
	// service/policy verdict for booking intents: an ambiguous or
	// unsupported service can never be committed.
	if plan.Status == domain.StatusReady && domain.ProducesBookingPayload(intent) &&
		dec.Status == domain.DecisionNeedsClarification && serviceReason(dec.Reason) {
		plan.Status = domain.StatusNeedsClarification
		plan.AllowedActions = nil
	}
	turn.Status = plan.Status

	var resp *TurnResponse
	switch plan.Status {
	case domain.StatusReady:
		resp = o.executeTurn(ctx, log, req, turn, plan, dec)
	case domain.StatusAwaitingConfirmation:
		resp = o.awaitConfirmation(ctx, req, turn, plan, dec, rb)
	default:
		resp = o.clarifyTurn(ctx, req, &merged, turn, plan, dec)
	}

	if o.audit != nil {
		action := ""
		if resp.Outcome != nil {
			action = resp.Outcome.ActionName
		}
		o.audit.Record(turnID, req.UserID, req.Domain, turn, action)
	}
	o.publishTurn(turnID, req, turn, resp)

	return resp
}

// executeTurn dispatches the commit action and clears the session. A
// failed dispatch leaves the session untouched so the user can retry.
func (o *Orchestrator) executeTurn(ctx context.Context, log *logger.Logger, req *TurnRequest,
	turn *domain.TurnState, plan domain.Plan, dec domain.DecisionResult) *TurnResponse {
	action := ""
	if len(plan.AllowedActions) > 0 {
		action = plan.AllowedActions[0]
	}

	result, err := o.executor.Dispatch(ctx, action, turn.Intent, turn.EffectiveSlots)
	if err != nil {
		log.Error("execution dispatch failed", "action", action, "error", err)
		return &TurnResponse{
			Success: false,
			Error:   domain.ErrorExecutionFailed,
			Message: "action dispatch failed",
			Outcome: &Outcome{
				Status:              domain.StatusNeedsClarification,
				IntentName:          turn.Intent,
				ActionName:          action,
				Slots:               turn.EffectiveSlots,
				ClarificationReason: dec.Reason,
			},
		}
	}

	_ = o.store.Clear(ctx, req.Domain, req.UserID)

	status := domain.StatusReady
	confirmation := result.ConfirmationState
	if result.Executed {
		status = domain.StatusExecuted
		if confirmation == "" {
			confirmation = "confirmed"
		}
	}
	turn.Status = status

	return &TurnResponse{
		Success: true,
		Outcome: &Outcome{
			Status:      status,
			IntentName:  turn.Intent,
			ActionName:  action,
			BookingCode: result.BookingCode,
			Booking:     &BookingOutcome{ConfirmationState: confirmation},
			Slots:       turn.EffectiveSlots,
		},
	}
}

// awaitConfirmation persists the session as AWAITING_CONFIRMATION.
func (o *Orchestrator) awaitConfirmation(ctx context.Context, req *TurnRequest,
	turn *domain.TurnState, plan domain.Plan,
	dec domain.DecisionResult, rb *domain.ResolvedBooking) *TurnResponse {
	state := o.sessionFromTurn(turn, plan)
	if dec.Status == domain.DecisionResolved {
		state.ResolvedBookingSemantics = rb
		state.Clarification = nil
	}
	_ = o.store.Set(ctx, req.Domain, req.UserID, state, o.sessionTTL)

	action := ""
	if len(plan.BlockedActions) > 0 {
		action = plan.BlockedActions[0]
	}

	return &TurnResponse{
		Success: true,
		Outcome: &Outcome{
			Status:     domain.StatusAwaitingConfirmation,
			IntentName: turn.Intent,
			ActionName: action,
			Booking:    &BookingOutcome{ConfirmationState: "pending"},
			Slots:      turn.EffectiveSlots,
			Awaiting:   plan.Awaiting,
		},
	}
}

// clarifyTurn builds the clarification outcome and persists the session
// so the next turn can continue the draft.
func (o *Orchestrator) clarifyTurn(ctx context.Context, req *TurnRequest,
	merged *domain.NLUResponse, turn *domain.TurnState, plan domain.Plan, dec domain.DecisionResult) *TurnResponse {
	clar := clarification.Build(turn.MissingSlots, merged.Issues)

	// When planning slots are complete but the decision layer still
	// objects (service ambiguity, policy), its reason is the one the
	// user must resolve. Ambiguous/unsupported service verdicts win even
	// while service_id is still formally missing: the user named a
	// service, the tenant just can't book it as said.
	if dec.Status == domain.DecisionNeedsClarification && dec.Reason != "" {
		if len(turn.MissingSlots) == 0 ||
			dec.Reason == domain.ReasonAmbiguousService || dec.Reason == domain.ReasonUnsupportedService {
			clar.Reason = dec.Reason
			clar.Data["reason"] = dec.Reason
		}
	}

	state := o.sessionFromTurn(turn, plan)
	state.Clarification = &clar
	_ = o.store.Set(ctx, req.Domain, req.UserID, state, o.sessionTTL)

	return &TurnResponse{
		Success: true,
		Outcome: &Outcome{
			Status:              domain.StatusNeedsClarification,
			IntentName:          turn.Intent,
			ClarificationReason: clar.Reason,
			TemplateKey:         templateKeyFor(clar.Reason),
			Data:                clar.Data,
			Context:             merged.Context,
			Slots:               turn.EffectiveSlots,
			Facts: &Facts{
				Slots:        turn.EffectiveSlots,
				MissingSlots: domain.SortedKeyStrings(turn.MissingSlots),
				Context:      merged.Context,
			},
		},
	}
}

func (o *Orchestrator) sessionFromTurn(turn *domain.TurnState, plan domain.Plan) *domain.SessionState {
	return &domain.SessionState{
		Intent:       turn.Intent,
		Slots:        turn.EffectiveSlots,
		MissingSlots: turn.MissingSlots,
		Status:       plan.Status,
		AwaitingSlot: plan.AwaitingSlot,
	}
}

func (o *Orchestrator) errorResponse(code domain.ErrorCode, intent domain.Intent) *TurnResponse {
	return &TurnResponse{
		Success: false,
		Error:   code,
		Outcome: &Outcome{
			Status:              domain.StatusNeedsClarification,
			IntentName:          intent,
			ClarificationReason: domain.ReasonNeedsClarification,
			Slots:               domain.NewSlots(),
		},
	}
}

func (o *Orchestrator) publishTurn(turnID string, req *TurnRequest, turn *domain.TurnState, resp *TurnResponse) {
	if o.publisher == nil || resp.Outcome == nil {
		return
	}
	subject := events.TurnClarificationEvent
	switch resp.Outcome.Status {
	case domain.StatusReady, domain.StatusExecuted:
		subject = events.TurnExecutedEvent
	case domain.StatusAwaitingConfirmation:
		subject = events.TurnAwaitingConfirmationEvent
	}
	event := events.TurnEvent{
		TurnID:  turnID,
		UserID:  req.UserID,
		Domain:  string(req.Domain),
		Intent:  string(turn.Intent),
		Status:  string(resp.Outcome.Status),
		Action:  resp.Outcome.ActionName,
		Reason:  string(resp.Outcome.ClarificationReason),
		Booking: resp.Outcome.BookingCode,
	}
	if err := o.publisher.Publish(subject, event); err != nil {
		o.logger.Error("failed to publish turn event", "subject", subject, "error", err)
	}
}

// isContextualUpdate reports whether a diverging-intent turn is really a
// continuation of a live create draft: at least one mutable slot
// supplied, no new service mention, and not a lifecycle intent of its
// own. Such turns are routed like the draft's own intent and persisted
// under it.
func isContextualUpdate(session *domain.SessionState, nlu *domain.NLUResponse) bool {
	if session.Intent != domain.IntentCreateAppointment && session.Intent != domain.IntentCreateReservation {
		return false
	}
	switch nlu.Intent.Name {
	case domain.IntentCancelBooking, domain.IntentModifyBooking, domain.IntentModifyReservation, domain.IntentPayment:
		return false
	}
	if nlu.Booking != nil && len(nlu.Booking.Services) > 0 {
		return false
	}
	mutable := []domain.SlotKey{domain.SlotDate, domain.SlotTime, domain.SlotDuration,
		domain.SlotStartDate, domain.SlotEndDate, domain.SlotDateRange}
	for _, k := range mutable {
		if nlu.Slots.Has(k) {
			return true
		}
	}
	return false
}

// resolvedBookingOf picks the semantic resolved_booking payload from the
// response's trace, stages, or top level, first hit wins.
func resolvedBookingOf(nlu *domain.NLUResponse) *domain.ResolvedBooking {
	if nlu.TraceSemantic != nil && nlu.TraceSemantic.ResolvedBooking != nil {
		return nlu.TraceSemantic.ResolvedBooking
	}
	for _, st := range nlu.Stages {
		if st.Semantic != nil && st.Semantic.ResolvedBooking != nil {
			return st.Semantic.ResolvedBooking
		}
	}
	return nlu.ResolvedBooking
}

func promoteContext(rb *domain.ResolvedBooking) promoter.PromoteContext {
	if rb == nil {
		return promoter.PromoteContext{}
	}
	return promoter.PromoteContext{DateRoles: rb.DateRoles}
}

func knownIntent(i domain.Intent) bool {
	switch i {
	case domain.IntentCreateAppointment, domain.IntentCreateReservation,
		domain.IntentModifyBooking, domain.IntentModifyReservation,
		domain.IntentCancelBooking, domain.IntentBookingInquiry,
		domain.IntentAvailability, domain.IntentDetails, domain.IntentQuote,
		domain.IntentDiscovery, domain.IntentRecommendation, domain.IntentPayment:
		return true
	}
	return false
}

func serviceReason(r domain.ClarificationReason) bool {
	switch r {
	case domain.ReasonMissingService, domain.ReasonUnsupportedService, domain.ReasonAmbiguousService,
		domain.ReasonPolicyTimeWindow, domain.ReasonPolicyConstraintOnly, domain.ReasonMissingTimeFuzzy:
		return true
	}
	return false
}

func templateKeyFor(r domain.ClarificationReason) string {
	switch r {
	case domain.ReasonMissingService:
		return "ask_service"
	case domain.ReasonUnsupportedService:
		return "unsupported_service"
	case domain.ReasonAmbiguousService:
		return "disambiguate_service"
	case domain.ReasonMissingDate:
		return "ask_date"
	case domain.ReasonMissingTime, domain.ReasonMissingTimeFuzzy:
		return "ask_time"
	case domain.ReasonMissingStartDate:
		return "ask_start_date"
	case domain.ReasonMissingEndDate:
		return "ask_end_date"
	case domain.ReasonMissingDateRange:
		return "ask_date_range"
	case domain.ReasonPolicyTimeWindow, domain.ReasonPolicyConstraintOnly:
		return "ask_exact_time"
	default:
		return "ask_clarification"
	}
}

func contains(keys []domain.SlotKey, k domain.SlotKey) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}

func remove(keys []domain.SlotKey, k domain.SlotKey) []domain.SlotKey {
	out := make([]domain.SlotKey, 0, len(keys))
	for _, key := range keys {
		if key != k {
			out = append(out, key)
		}
	}
	return out
}

func clearIfMatches(slot *domain.SlotKey, k domain.SlotKey) *domain.SlotKey {
	if slot != nil && *slot == k {
		return nil
	}
	return slot
}
