package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEscalationTriggered EventType = "sla_escalation_triggered"
	EventBreachWarning       EventType = "sla_breach_warning"
	EventDeadlineRecomputed  EventType = "sla_deadline_recomputed"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New builds an event envelope with a fresh identifier.
func New(eventType EventType, ticketID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// EscalationPayload accompanies EventEscalationTriggered. Reason names the
// overdue obligation, "response" when both are overdue.
type EscalationPayload struct {
	Reason string     `json:"reason"`
	DueAt  *time.Time `json:"due_at,omitempty"`
}

// BreachWarningPayload accompanies EventBreachWarning.
type BreachWarningPayload struct {
	Obligation  string    `json:"obligation"`
	DueAt       time.Time `json:"due_at"`
	MinutesLeft int64     `json:"minutes_left"`
}

// DeadlineRecomputedPayload accompanies EventDeadlineRecomputed.
type DeadlineRecomputedPayload struct {
	RuleID          *string    `json:"rule_id,omitempty"`
	ResponseDueAt   *time.Time `json:"response_due_at,omitempty"`
	ResolutionDueAt *time.Time `json:"resolution_due_at,omitempty"`
}
