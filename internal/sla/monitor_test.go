package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
)

func boolPtr(v bool) *bool { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestStatusGradesObligations(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	responded := now.Add(-30 * time.Minute)
	tracking := newFakeTrackingRepo()
	require.NoError(t, tracking.Upsert(context.Background(), &domain.SlaTracking{
		TicketID:        "t1",
		ResponseDueAt:   timePtr(now.Add(-time.Hour)),
		FirstResponseAt: &responded,
		ResponseSlaMet:  boolPtr(false),
		ResponseBreachMinutes: 30,
		ResolutionDueAt: timePtr(now.Add(2 * time.Hour)),
	}))
	monitor := NewMonitor(newFakeTicketRepo(), tracking, &fakeRuleRepo{}, nil, zap.NewNop())

	status, err := monitor.Status(context.Background(), "t1", now)
	require.NoError(t, err)
	assert.Equal(t, StateBreached, status.Response.State)
	assert.Equal(t, int64(30), status.Response.BreachMinutes)
	assert.Equal(t, StateActive, status.Resolution.State)
}

func TestStatusOverdueWithoutMilestoneIsBreached(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	tracking := newFakeTrackingRepo()
	require.NoError(t, tracking.Upsert(context.Background(), &domain.SlaTracking{
		TicketID:      "t1",
		ResponseDueAt: timePtr(now.Add(-45 * time.Minute)),
	}))
	monitor := NewMonitor(newFakeTicketRepo(), tracking, &fakeRuleRepo{}, nil, zap.NewNop())

	status, err := monitor.Status(context.Background(), "t1", now)
	require.NoError(t, err)
	assert.Equal(t, StateBreached, status.Response.State)
	assert.Equal(t, int64(45), status.Response.BreachMinutes)
	assert.Equal(t, StateNoSla, status.Resolution.State)
}

func TestStatusResolvesGoverningRule(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ruleID := "rule-1"
	rules := &fakeRuleRepo{rules: []domain.SlaRule{
		{ID: ruleID, EntityID: entityID, Priority: domain.TicketPriorityHigh, ResponseMinutes: 60, IsActive: true},
	}}

	tracking := newFakeTrackingRepo()
	require.NoError(t, tracking.Upsert(context.Background(), &domain.SlaTracking{
		TicketID:      "t1",
		RuleID:        &ruleID,
		ResponseDueAt: timePtr(now.Add(time.Hour)),
	}))
	monitor := NewMonitor(newFakeTicketRepo(), tracking, rules, nil, zap.NewNop())

	status, err := monitor.Status(context.Background(), "t1", now)
	require.NoError(t, err)
	require.NotNil(t, status.Rule)
	assert.Equal(t, ruleID, status.Rule.ID)
	assert.Equal(t, 60, status.Rule.ResponseMinutes)

	// A rule deleted after tracking was written leaves RuleID dangling.
	rules.rules = nil
	status, err = monitor.Status(context.Background(), "t1", now)
	require.NoError(t, err)
	assert.Nil(t, status.Rule)
	require.NotNil(t, status.RuleID)
}

func TestApproachingBreachWarnsOnce(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	tickets := newFakeTicketRepo(
		newTicket("t1", domain.TicketPriorityHigh, now.Add(-time.Hour)),
		newTicket("t2", domain.TicketPriorityHigh, now.Add(-time.Hour)),
		newTicket("t3", domain.TicketPriorityHigh, now.Add(-time.Hour)),
	)
	tickets.tickets["t3"].Status = domain.TicketStatusClosed

	tracking := newFakeTrackingRepo()
	// t1: due inside the window, no response yet -> warned.
	require.NoError(t, tracking.Upsert(ctx, &domain.SlaTracking{
		TicketID:      "t1",
		ResponseDueAt: timePtr(now.Add(30 * time.Minute)),
	}))
	// t2: due beyond the window -> not warned.
	require.NoError(t, tracking.Upsert(ctx, &domain.SlaTracking{
		TicketID:      "t2",
		ResponseDueAt: timePtr(now.Add(5 * time.Hour)),
	}))
	// t3: inside the window but the ticket is terminal -> not warned.
	require.NoError(t, tracking.Upsert(ctx, &domain.SlaTracking{
		TicketID:        "t3",
		ResolutionDueAt: timePtr(now.Add(30 * time.Minute)),
	}))

	dispatcher := &captureDispatcher{}
	monitor := NewMonitor(tickets, tracking, &fakeRuleRepo{}, dispatcher, zap.NewNop())

	warned, err := monitor.ApproachingBreach(ctx, now, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, warned)

	warnings := dispatcher.ofType(events.EventBreachWarning)
	require.Len(t, warnings, 1)
	payload, ok := warnings[0].Payload.(events.BreachWarningPayload)
	require.True(t, ok)
	assert.Equal(t, "response", payload.Obligation)
	assert.Equal(t, int64(30), payload.MinutesLeft)
}

func TestComplianceRate(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	ctx := context.Background()

	tickets := newFakeTicketRepo(
		newTicket("t1", domain.TicketPriorityHigh, from.Add(24*time.Hour)),
		newTicket("t2", domain.TicketPriorityHigh, from.Add(48*time.Hour)),
		newTicket("t3", domain.TicketPriorityHigh, from.Add(72*time.Hour)),
	)

	ruleID := "rule-1"
	tracking := newFakeTrackingRepo()
	require.NoError(t, tracking.Upsert(ctx, &domain.SlaTracking{
		TicketID: "t1", RuleID: &ruleID,
		ResponseSlaMet: boolPtr(true), ResolutionSlaMet: boolPtr(true),
	}))
	require.NoError(t, tracking.Upsert(ctx, &domain.SlaTracking{
		TicketID: "t2", RuleID: &ruleID,
		ResponseSlaMet: boolPtr(false), ResolutionSlaMet: boolPtr(true),
	}))
	// t3 has no rule: excluded from the tracked population.
	require.NoError(t, tracking.Upsert(ctx, &domain.SlaTracking{TicketID: "t3"}))

	monitor := NewMonitor(tickets, tracking, &fakeRuleRepo{}, nil, zap.NewNop())
	report, err := monitor.ComplianceRate(ctx, entityID, from, to)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalTickets)
	assert.Equal(t, 2, report.TrackedTickets)
	assert.Equal(t, 1, report.ResponseMet)
	assert.Equal(t, 1, report.ResponseBreached)
	assert.InDelta(t, 50.0, report.ResponseRate, 0.001)
	assert.InDelta(t, 100.0, report.ResolutionRate, 0.001)
}
