package sla

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// ObligationState classifies one SLA obligation on a ticket.
type ObligationState string

const (
	StateNoSla    ObligationState = "no_sla"
	StateActive   ObligationState = "active"
	StateMet      ObligationState = "met"
	StateBreached ObligationState = "breached"
)

// ObligationStatus is the point-in-time view of one obligation.
type ObligationStatus struct {
	State         ObligationState
	DueAt         *time.Time
	BreachMinutes int64
}

// SlaStatus is the per-ticket SLA snapshot. Rule is the governing rule when
// it still exists; RuleID may outlive it.
type SlaStatus struct {
	TicketID   string
	RuleID     *string
	Rule       *domain.SlaRule
	Response   ObligationStatus
	Resolution ObligationStatus
}

// ComplianceReport aggregates met/breached counts for an entity over a
// creation-time window. Rates are percentages over graded obligations.
type ComplianceReport struct {
	EntityID           string
	From               time.Time
	To                 time.Time
	TotalTickets       int
	TrackedTickets     int
	ResponseMet        int
	ResponseBreached   int
	ResolutionMet      int
	ResolutionBreached int
	ResponseRate       float64
	ResolutionRate     float64
}

// Monitor answers read-only SLA questions and raises breach warnings.
type Monitor struct {
	tickets    repository.TicketRepository
	tracking   repository.TrackingRepository
	rules      repository.SlaRuleRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewMonitor constructs a Monitor.
func NewMonitor(
	tickets repository.TicketRepository,
	tracking repository.TrackingRepository,
	rules repository.SlaRuleRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		tickets:    tickets,
		tracking:   tracking,
		rules:      rules,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Status reports the current SLA state of one ticket.
func (m *Monitor) Status(ctx context.Context, ticketID string, now time.Time) (*SlaStatus, error) {
	tracking, err := m.tracking.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if tracking == nil {
		return nil, util.NewValidationError("no tracking row for ticket", map[string]any{"ticket_id": ticketID})
	}
	status := &SlaStatus{
		TicketID:   ticketID,
		RuleID:     tracking.RuleID,
		Response:   gradeObligation(tracking.FirstResponseAt, tracking.ResponseDueAt, tracking.ResponseSlaMet, tracking.ResponseBreachMinutes, now),
		Resolution: gradeObligation(tracking.ResolvedAt, tracking.ResolutionDueAt, tracking.ResolutionSlaMet, tracking.ResolutionBreachMinutes, now),
	}
	if tracking.RuleID != nil && m.rules != nil {
		rule, err := m.rules.GetByID(ctx, *tracking.RuleID)
		if err != nil {
			return nil, err
		}
		status.Rule = rule
	}
	return status, nil
}

func gradeObligation(actual, due *time.Time, met *bool, breachMinutes int64, now time.Time) ObligationStatus {
	if due == nil {
		return ObligationStatus{State: StateNoSla}
	}
	if met != nil {
		state := StateMet
		if !*met {
			state = StateBreached
		}
		return ObligationStatus{State: state, DueAt: due, BreachMinutes: breachMinutes}
	}
	if actual == nil && now.After(*due) {
		return ObligationStatus{
			State:         StateBreached,
			DueAt:         due,
			BreachMinutes: int64(now.Sub(*due) / time.Minute),
		}
	}
	return ObligationStatus{State: StateActive, DueAt: due}
}

// ApproachingBreach finds non-terminal tickets with a response or resolution
// due inside (now, now+window] and the milestone still missing, publishing
// one warning per ticket for the earliest such due. It returns the ticket
// ids that were warned.
func (m *Monitor) ApproachingBreach(ctx context.Context, now time.Time, window time.Duration) ([]string, error) {
	trackings, err := m.tracking.List(ctx)
	if err != nil {
		return nil, err
	}
	deadline := now.Add(window)

	var warned []string
	for i := range trackings {
		tracking := &trackings[i]

		obligation, due := earliestPendingDue(tracking, now, deadline)
		if due == nil {
			continue
		}
		ticket, err := m.tickets.GetByID(ctx, tracking.TicketID)
		if err != nil {
			return warned, err
		}
		if ticket == nil || ticket.Status.IsTerminal() {
			continue
		}

		warned = append(warned, tracking.TicketID)
		if m.dispatcher != nil {
			_ = m.dispatcher.Publish(ctx, events.New(events.EventBreachWarning, tracking.TicketID, events.BreachWarningPayload{
				Obligation:  obligation,
				DueAt:       *due,
				MinutesLeft: int64(due.Sub(now) / time.Minute),
			}))
		}
	}
	return warned, nil
}

// earliestPendingDue picks the soonest obligation still missing its milestone
// whose due falls inside (now, deadline].
func earliestPendingDue(tracking *domain.SlaTracking, now, deadline time.Time) (string, *time.Time) {
	obligation, best := "", (*time.Time)(nil)
	consider := func(name string, actual, due *time.Time) {
		if actual != nil || due == nil {
			return
		}
		if !due.After(now) || due.After(deadline) {
			return
		}
		if best == nil || due.Before(*best) {
			obligation, best = name, due
		}
	}
	consider("response", tracking.FirstResponseAt, tracking.ResponseDueAt)
	consider("resolution", tracking.ResolvedAt, tracking.ResolutionDueAt)
	return obligation, best
}

// ComplianceRate aggregates compliance for tickets created in [from, to].
func (m *Monitor) ComplianceRate(ctx context.Context, entityID string, from, to time.Time) (*ComplianceReport, error) {
	tickets, err := m.tickets.ListByEntityBetween(ctx, entityID, from, to)
	if err != nil {
		return nil, err
	}

	report := &ComplianceReport{EntityID: entityID, From: from, To: to, TotalTickets: len(tickets)}
	for i := range tickets {
		tracking, err := m.tracking.GetByTicket(ctx, tickets[i].ID)
		if err != nil {
			return nil, err
		}
		if tracking == nil || tracking.RuleID == nil {
			continue
		}
		report.TrackedTickets++
		tally(tracking.ResponseSlaMet, &report.ResponseMet, &report.ResponseBreached)
		tally(tracking.ResolutionSlaMet, &report.ResolutionMet, &report.ResolutionBreached)
	}
	report.ResponseRate = rate(report.ResponseMet, report.ResponseBreached)
	report.ResolutionRate = rate(report.ResolutionMet, report.ResolutionBreached)
	return report, nil
}

func tally(met *bool, metCount, breachedCount *int) {
	if met == nil {
		return
	}
	if *met {
		*metCount++
	} else {
		*breachedCount++
	}
}

func rate(met, breached int) float64 {
	graded := met + breached
	if graded == 0 {
		return 0
	}
	return float64(met) / float64(graded) * 100
}
