package sla

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/calendar"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// Tracker owns the per-ticket SLA tracking row: due dates computed at
// creation, milestone mirrors, and the derived compliance fields. The ticket
// store stays authoritative for milestone actuals; the tracker mirrors them.
type Tracker struct {
	tickets    repository.TicketRepository
	tracking   repository.TrackingRepository
	resolver   *Resolver
	calendar   *calendar.Calendar
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewTracker constructs a Tracker. The dispatcher may be nil when no one
// listens for deadline events.
func NewTracker(
	tickets repository.TicketRepository,
	tracking repository.TrackingRepository,
	resolver *Resolver,
	cal *calendar.Calendar,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *Tracker {
	return &Tracker{
		tickets:    tickets,
		tracking:   tracking,
		resolver:   resolver,
		calendar:   cal,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// OnTicketCreated resolves the governing rule and writes the initial tracking
// row. A ticket without a matching rule still gets a row, with null due
// dates, so later rule changes can pick it up on recompute. Idempotent: a
// second call replaces the row with the same computed values.
func (t *Tracker) OnTicketCreated(ctx context.Context, ticket *domain.Ticket) (*domain.SlaTracking, error) {
	rule, err := t.resolver.Resolve(ctx, ticket.EntityID, ticket.Priority)
	if err != nil {
		return nil, err
	}

	tracking := &domain.SlaTracking{
		TicketID:        ticket.ID,
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
	}
	if existing, err := t.tracking.GetByTicket(ctx, ticket.ID); err != nil {
		return nil, err
	} else if existing != nil {
		tracking.ID = existing.ID
		tracking.EscalationTriggered = existing.EscalationTriggered
	}

	if rule != nil {
		tracking.RuleID = &rule.ID
		tracking.ResponseDueAt = t.dueAt(ctx, ticket.EntityID, ticket.CreatedAt, rule.ResponseMinutes, rule.BusinessHoursOnly)
		tracking.ResolutionDueAt = t.dueAt(ctx, ticket.EntityID, ticket.CreatedAt, rule.ResolutionMinutes, rule.BusinessHoursOnly)
		tracking.EscalationDueAt = t.dueAt(ctx, ticket.EntityID, ticket.CreatedAt, rule.EscalationMinutes, rule.BusinessHoursOnly)
	}
	ApplyCompliance(tracking)

	if err := t.tracking.Upsert(ctx, tracking); err != nil {
		return nil, err
	}
	return tracking, nil
}

// OnFirstResponse records the first-response milestone. The ticket store
// write is best-effort; the tracking mirror and compliance fields always
// update.
func (t *Tracker) OnFirstResponse(ctx context.Context, ticketID string, when time.Time) error {
	if err := t.tickets.SetFirstResponse(ctx, ticketID, when); err != nil {
		t.logger.Warn("recording first response on ticket store failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
	return t.recordMilestone(ctx, ticketID, func(tr *domain.SlaTracking) {
		if tr.FirstResponseAt == nil {
			tr.FirstResponseAt = &when
		}
	})
}

// OnResolved records the resolution milestone.
func (t *Tracker) OnResolved(ctx context.Context, ticketID string, when time.Time) error {
	if err := t.tickets.SetResolved(ctx, ticketID, when); err != nil {
		t.logger.Warn("recording resolution on ticket store failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
	return t.recordMilestone(ctx, ticketID, func(tr *domain.SlaTracking) {
		if tr.ResolvedAt == nil {
			tr.ResolvedAt = &when
		}
	})
}

func (t *Tracker) recordMilestone(ctx context.Context, ticketID string, apply func(*domain.SlaTracking)) error {
	tracking, err := t.tracking.GetByTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if tracking == nil {
		ticket, err := t.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket == nil {
			return util.NewValidationError("ticket does not exist", map[string]any{"ticket_id": ticketID})
		}
		if tracking, err = t.OnTicketCreated(ctx, ticket); err != nil {
			return err
		}
	}
	apply(tracking)
	ApplyCompliance(tracking)
	return t.tracking.Upsert(ctx, tracking)
}

// Recompute re-resolves the rule and recomputes due dates and compliance
// from current state. A due date never moves backward once its milestone was
// recorded compliant against the stored due: the obligation was honored under
// the rules in force at the time, and a later rule tightening must not turn
// that into a retroactive breach.
func (t *Tracker) Recompute(ctx context.Context, ticketID string) (*domain.SlaTracking, error) {
	ticket, err := t.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, util.NewValidationError("ticket does not exist", map[string]any{"ticket_id": ticketID})
	}

	existing, err := t.tracking.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	rule, err := t.resolver.Resolve(ctx, ticket.EntityID, ticket.Priority)
	if err != nil {
		return nil, err
	}

	tracking := &domain.SlaTracking{
		TicketID:        ticket.ID,
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
	}
	if existing != nil {
		tracking.ID = existing.ID
		tracking.EscalationTriggered = existing.EscalationTriggered
	}
	if rule != nil {
		tracking.RuleID = &rule.ID
		tracking.ResponseDueAt = t.dueAt(ctx, ticket.EntityID, ticket.CreatedAt, rule.ResponseMinutes, rule.BusinessHoursOnly)
		tracking.ResolutionDueAt = t.dueAt(ctx, ticket.EntityID, ticket.CreatedAt, rule.ResolutionMinutes, rule.BusinessHoursOnly)
		tracking.EscalationDueAt = t.dueAt(ctx, ticket.EntityID, ticket.CreatedAt, rule.EscalationMinutes, rule.BusinessHoursOnly)
	}
	if existing != nil {
		tracking.ResponseDueAt = keepCompliantDue(existing.ResponseDueAt, tracking.ResponseDueAt, tracking.FirstResponseAt)
		tracking.ResolutionDueAt = keepCompliantDue(existing.ResolutionDueAt, tracking.ResolutionDueAt, tracking.ResolvedAt)
	}
	ApplyCompliance(tracking)

	if err := t.tracking.Upsert(ctx, tracking); err != nil {
		return nil, err
	}
	if t.dispatcher != nil {
		_ = t.dispatcher.Publish(ctx, events.New(events.EventDeadlineRecomputed, ticket.ID, events.DeadlineRecomputedPayload{
			RuleID:          tracking.RuleID,
			ResponseDueAt:   tracking.ResponseDueAt,
			ResolutionDueAt: tracking.ResolutionDueAt,
		}))
	}
	return tracking, nil
}

// keepCompliantDue keeps the stored due when the milestone was already
// recorded compliant against it and the recomputed due would move it earlier.
func keepCompliantDue(stored, recomputed, actual *time.Time) *time.Time {
	if stored == nil || actual == nil || actual.After(*stored) {
		return recomputed
	}
	if recomputed == nil || recomputed.Before(*stored) {
		return stored
	}
	return recomputed
}

// dueAt computes one due date. Zero minutes means the obligation is not
// tracked. A calendar failure leaves the due null; the next sync pass fills
// it in once the calendar is fixed.
func (t *Tracker) dueAt(ctx context.Context, entityID string, start time.Time, minutes int, businessHoursOnly bool) *time.Time {
	if minutes <= 0 {
		return nil
	}
	if !businessHoursOnly {
		due := start.Add(time.Duration(minutes) * time.Minute)
		return &due
	}
	due, err := t.calendar.AddOpenMinutes(ctx, entityID, start, minutes)
	if err != nil {
		t.logger.Warn("due date left null, calendar unavailable",
			zap.String("entity_id", entityID), zap.Error(err))
		return nil
	}
	return &due
}

// ApplyCompliance recomputes both met flags and breach minutes from the
// milestone mirrors and due dates on the row.
func ApplyCompliance(tracking *domain.SlaTracking) {
	tracking.ResponseSlaMet, tracking.ResponseBreachMinutes = Assess(tracking.FirstResponseAt, tracking.ResponseDueAt)
	tracking.ResolutionSlaMet, tracking.ResolutionBreachMinutes = Assess(tracking.ResolvedAt, tracking.ResolutionDueAt)
}

// Assess grades one obligation. The met flag stays nil until both the actual
// and the due exist; breach minutes are wall-clock and never negative.
func Assess(actual, due *time.Time) (*bool, int64) {
	if actual == nil || due == nil {
		return nil, 0
	}
	met := !actual.After(*due)
	if met {
		return &met, 0
	}
	return &met, int64(actual.Sub(*due) / time.Minute)
}
