package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusPending         TicketStatus = "pending"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusEscalated       TicketStatus = "escalated"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusCancelled       TicketStatus = "cancelled"
)

// AllTicketStatuses lists every legal status value.
var AllTicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusOpen,
	TicketStatusPending,
	TicketStatusInProgress,
	TicketStatusWaitingCustomer,
	TicketStatusEscalated,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// IsTerminal reports whether the status ends SLA clock tracking.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// IsValid reports whether the status belongs to the closed enumeration.
func (s TicketStatus) IsValid() bool {
	for _, v := range AllTicketStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityNormal   TicketPriority = "normal"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityUrgent   TicketPriority = "urgent"
	TicketPriorityCritical TicketPriority = "critical"
)

// AllTicketPriorities lists every legal priority value.
var AllTicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityNormal,
	TicketPriorityHigh,
	TicketPriorityUrgent,
	TicketPriorityCritical,
}

// IsValid reports whether the priority belongs to the closed enumeration.
func (p TicketPriority) IsValid() bool {
	for _, v := range AllTicketPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Ticket is the engine's view of a support request. The ticket store is the
// single source of truth for milestone timestamps.
type Ticket struct {
	ID              string
	EntityID        string
	Number          string
	Subject         string
	CustomerEmail   string
	Priority        TicketPriority
	Status          TicketStatus
	AssignedTo      *string
	CreatedBy       *string
	CreatedAt       time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
}
