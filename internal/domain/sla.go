package domain

import "time"

// RulePriorityAll is the wildcard priority on SLA rules: the rule applies to
// any ticket priority, losing to an exact-priority match.
const RulePriorityAll TicketPriority = "all"

// SlaRule is a threshold triple for one (entity, priority) pair. A zero
// minute value means that obligation is not tracked.
type SlaRule struct {
	ID                string
	EntityID          string
	Priority          TicketPriority
	ResponseMinutes   int
	ResolutionMinutes int
	EscalationMinutes int
	BusinessHoursOnly bool
	IsActive          bool
	CreatedAt         time.Time
}

// SlaTracking is the denormalized per-ticket record: due dates computed at
// creation, milestone mirrors copied from the ticket store, and derived
// compliance fields. Exactly one row exists per ticket.
type SlaTracking struct {
	ID                      string
	TicketID                string
	RuleID                  *string
	ResponseDueAt           *time.Time
	ResolutionDueAt         *time.Time
	EscalationDueAt         *time.Time
	FirstResponseAt         *time.Time
	ResolvedAt              *time.Time
	ResponseSlaMet          *bool
	ResolutionSlaMet        *bool
	EscalationTriggered     bool
	ResponseBreachMinutes   int64
	ResolutionBreachMinutes int64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
