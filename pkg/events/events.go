// Package events publishes turn outcomes and subscribes to tenant alias
// updates over NATS. A Publisher built without a connection degrades to
// a no-op so development environments without a broker still work.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// Publisher handles event publishing
type Publisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// Subscriber handles event subscriptions
type Subscriber struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// Connect connects to NATS
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NewPublisher creates a new event publisher
func NewPublisher(conn *nats.Conn, logger *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// NewNullPublisher creates a publisher that drops everything, for
// development without a broker
func NewNullPublisher(logger *logger.Logger) *Publisher {
	return &Publisher{
		conn:   nil,
		logger: logger,
	}
}

// Publish publishes an event
func (p *Publisher) Publish(subject string, data interface{}) error {
	if p.conn == nil {
		p.logger.Debug("Event publishing skipped (no NATS connection)", "subject", subject)
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published event", "subject", subject)
	return nil
}

// NewSubscriber creates a new event subscriber
func NewSubscriber(conn *nats.Conn, logger *logger.Logger) *Subscriber {
	return &Subscriber{
		conn:   conn,
		logger: logger,
	}
}

// Subscribe subscribes to events on a subject
func (s *Subscriber) Subscribe(subject string, handler func([]byte) error) error {
	_, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			s.logger.Error("Failed to handle event", "subject", subject, "error", err)
		}
	})

	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	s.logger.Debug("Subscribed to subject", "subject", subject)
	return nil
}

// Event Subjects
const (
	TurnExecutedEvent             = "dialog.turn.executed"
	TurnClarificationEvent        = "dialog.turn.clarification_requested"
	TurnAwaitingConfirmationEvent = "dialog.turn.awaiting_confirmation"
	// TenantAliasesUpdatedEvent refreshes pkg/tenant's alias cache
	TenantAliasesUpdatedEvent = "dialog.tenant.alias_updated"
)

// TurnEvent is the payload published on every completed turn.
type TurnEvent struct {
	TurnID  string `json:"turn_id"`
	UserID  string `json:"user_id"`
	Domain  string `json:"domain"`
	Intent  string `json:"intent"`
	Status  string `json:"status"`
	Action  string `json:"action,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Booking string `json:"booking_code,omitempty"`
}
