// Package consistency reconciles the denormalized SLA tracking store with
// the authoritative ticket store. Drift accumulates whenever the ticket side
// changes without going through the tracker, so the synchronizer runs the
// same reconciliation passes on a cadence.
package consistency

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// Pass names, in execution order.
const (
	PassPropagateMilestones    = "propagate_milestones"
	PassRecomputeCompliance    = "recompute_compliance"
	PassRecomputeBreaches      = "recompute_breaches"
	PassBackfillTracking       = "backfill_tracking"
	PassSweepEscalations       = "sweep_escalations"
	PassBackfillResponseMetric = "backfill_response_metrics"
)

// SyncReport describes one completed pass.
type SyncReport struct {
	Pass         string
	RowsAffected int64
	Duration     time.Duration
	Err          error
}

// Synchronizer runs the reconciliation passes. Each pass executes in its own
// transaction and records its own outcome; a failing pass never stops the
// ones after it.
type Synchronizer struct {
	tickets    repository.TicketRepository
	tracking   repository.TrackingRepository
	metricRepo repository.ResponseMetricRepository
	tracker    *sla.Tracker
	tx         repository.TxRunner
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewSynchronizer constructs a Synchronizer.
func NewSynchronizer(
	tickets repository.TicketRepository,
	tracking repository.TrackingRepository,
	metricRepo repository.ResponseMetricRepository,
	tracker *sla.Tracker,
	tx repository.TxRunner,
	dispatcher events.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Synchronizer {
	return &Synchronizer{
		tickets:    tickets,
		tracking:   tracking,
		metricRepo: metricRepo,
		tracker:    tracker,
		tx:         tx,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RunAll executes every pass in order and returns one report per pass. With
// no intervening changes a second run reports zero rows in every pass.
func (s *Synchronizer) RunAll(ctx context.Context) []SyncReport {
	passes := []struct {
		name string
		run  func(context.Context) (int64, error)
	}{
		{PassPropagateMilestones, s.propagateMilestones},
		{PassRecomputeCompliance, s.recomputeCompliance},
		{PassRecomputeBreaches, s.recomputeBreaches},
		{PassBackfillTracking, s.backfillTracking},
		{PassSweepEscalations, s.sweepEscalations},
		{PassBackfillResponseMetric, s.backfillResponseMetrics},
	}

	reports := make([]SyncReport, 0, len(passes))
	for _, pass := range passes {
		reports = append(reports, s.runPass(ctx, pass.name, pass.run))
	}
	return reports
}

func (s *Synchronizer) runPass(ctx context.Context, name string, run func(context.Context) (int64, error)) SyncReport {
	started := time.Now()
	var rows int64
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var passErr error
		rows, passErr = run(ctx)
		return passErr
	})

	report := SyncReport{Pass: name, RowsAffected: rows, Duration: time.Since(started), Err: err}
	s.metrics.RecordPass(name, rows, err != nil)
	if err != nil {
		s.logger.Error("sync pass failed",
			zap.String("pass", name),
			zap.Int64("rows_affected", rows),
			zap.Error(err),
		)
		return report
	}
	s.logger.Info("sync pass completed",
		zap.String("pass", name),
		zap.Int64("rows_affected", rows),
		zap.Duration("duration", report.Duration),
	)
	return report
}

// propagateMilestones copies non-null milestone actuals from the ticket store
// into the tracking mirror. The ticket side is authoritative; the mirror is
// never cleared here.
func (s *Synchronizer) propagateMilestones(ctx context.Context) (int64, error) {
	trackings, err := s.tracking.List(ctx)
	if err != nil {
		return 0, err
	}

	var changed int64
	for i := range trackings {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		tracking := &trackings[i]
		ticket, err := s.tickets.GetByID(ctx, tracking.TicketID)
		if err != nil {
			return changed, err
		}
		if ticket == nil {
			continue
		}

		dirty := false
		if ticket.FirstResponseAt != nil && !timesEqual(tracking.FirstResponseAt, ticket.FirstResponseAt) {
			tracking.FirstResponseAt = ticket.FirstResponseAt
			dirty = true
		}
		if ticket.ResolvedAt != nil && !timesEqual(tracking.ResolvedAt, ticket.ResolvedAt) {
			tracking.ResolvedAt = ticket.ResolvedAt
			dirty = true
		}
		if !dirty {
			continue
		}
		if err := s.tracking.Upsert(ctx, tracking); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// recomputeCompliance regrades the met flags from (due, actual) pairs. Rows
// with the milestone still missing keep their nil flag.
func (s *Synchronizer) recomputeCompliance(ctx context.Context) (int64, error) {
	return s.regrade(ctx, func(tracking *domain.SlaTracking) bool {
		responseMet, _ := sla.Assess(tracking.FirstResponseAt, tracking.ResponseDueAt)
		resolutionMet, _ := sla.Assess(tracking.ResolvedAt, tracking.ResolutionDueAt)

		dirty := false
		if !boolsEqual(tracking.ResponseSlaMet, responseMet) {
			tracking.ResponseSlaMet = responseMet
			dirty = true
		}
		if !boolsEqual(tracking.ResolutionSlaMet, resolutionMet) {
			tracking.ResolutionSlaMet = resolutionMet
			dirty = true
		}
		return dirty
	})
}

// recomputeBreaches regrades the breach minutes from (due, actual) pairs.
func (s *Synchronizer) recomputeBreaches(ctx context.Context) (int64, error) {
	return s.regrade(ctx, func(tracking *domain.SlaTracking) bool {
		_, responseBreach := sla.Assess(tracking.FirstResponseAt, tracking.ResponseDueAt)
		_, resolutionBreach := sla.Assess(tracking.ResolvedAt, tracking.ResolutionDueAt)

		dirty := false
		if tracking.ResponseBreachMinutes != responseBreach {
			tracking.ResponseBreachMinutes = responseBreach
			dirty = true
		}
		if tracking.ResolutionBreachMinutes != resolutionBreach {
			tracking.ResolutionBreachMinutes = resolutionBreach
			dirty = true
		}
		return dirty
	})
}

func (s *Synchronizer) regrade(ctx context.Context, apply func(*domain.SlaTracking) bool) (int64, error) {
	trackings, err := s.tracking.List(ctx)
	if err != nil {
		return 0, err
	}

	var changed int64
	for i := range trackings {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		tracking := &trackings[i]
		if !apply(tracking) {
			continue
		}
		if err := s.tracking.Upsert(ctx, tracking); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// backfillTracking creates tracking rows for non-terminal tickets that have
// none, through the tracker's normal creation path.
func (s *Synchronizer) backfillTracking(ctx context.Context) (int64, error) {
	tickets, err := s.tickets.ListActiveWithoutTracking(ctx)
	if err != nil {
		return 0, err
	}

	var created int64
	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if _, err := s.tracker.OnTicketCreated(ctx, &tickets[i]); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// sweepEscalations escalates non-terminal tickets past a due date with the
// milestone still missing. Exactly one escalation event goes out per newly
// escalated ticket; already-escalated rows are skipped.
func (s *Synchronizer) sweepEscalations(ctx context.Context) (int64, error) {
	tickets, err := s.tickets.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()

	var escalated int64
	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return escalated, err
		}
		ticket := &tickets[i]
		tracking, err := s.tracking.GetByTicket(ctx, ticket.ID)
		if err != nil {
			return escalated, err
		}
		if tracking == nil || tracking.EscalationTriggered {
			continue
		}

		reason, dueAt := overdueObligation(tracking, now)
		if reason == "" {
			continue
		}

		if err := s.tickets.SetStatus(ctx, ticket.ID, domain.TicketStatusEscalated); err != nil {
			return escalated, err
		}
		tracking.EscalationTriggered = true
		if err := s.tracking.Upsert(ctx, tracking); err != nil {
			return escalated, err
		}
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.New(events.EventEscalationTriggered, ticket.ID, events.EscalationPayload{
				Reason: reason,
				DueAt:  dueAt,
			}))
		}
		escalated++
	}
	return escalated, nil
}

// overdueObligation names the obligation justifying escalation. Response
// wins when both are overdue.
func overdueObligation(tracking *domain.SlaTracking, now time.Time) (string, *time.Time) {
	if tracking.FirstResponseAt == nil && tracking.ResponseDueAt != nil && now.After(*tracking.ResponseDueAt) {
		return "response", tracking.ResponseDueAt
	}
	if tracking.ResolvedAt == nil && tracking.ResolutionDueAt != nil && now.After(*tracking.ResolutionDueAt) {
		return "resolution", tracking.ResolutionDueAt
	}
	return "", nil
}

// backfillResponseMetrics inserts missing first-response duration metrics.
// Non-positive durations are skipped; the metric table only holds positive
// values.
func (s *Synchronizer) backfillResponseMetrics(ctx context.Context) (int64, error) {
	tickets, err := s.metricRepo.ListTicketsWithoutMetric(ctx)
	if err != nil {
		return 0, err
	}

	var inserted int64
	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		ticket := &tickets[i]
		if ticket.FirstResponseAt == nil {
			continue
		}
		duration := int64(ticket.FirstResponseAt.Sub(ticket.CreatedAt) / time.Minute)
		if duration <= 0 {
			continue
		}
		metric := domain.ResponseMetric{
			TicketID:        ticket.ID,
			MetricType:      domain.MetricFirstResponse,
			DurationMinutes: duration,
			CreatedAt:       s.now(),
		}
		if err := s.metricRepo.Insert(ctx, metric); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func boolsEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
