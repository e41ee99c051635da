package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
)

const (
	entityID = "aaaaaaaa-0000-0000-0000-000000000001"
	parentID = "aaaaaaaa-0000-0000-0000-000000000002"
)

var ruleEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func activeRule(id, entity string, priority domain.TicketPriority, createdAt time.Time) domain.SlaRule {
	return domain.SlaRule{
		ID:                id,
		EntityID:          entity,
		Priority:          priority,
		ResponseMinutes:   60,
		ResolutionMinutes: 480,
		IsActive:          true,
		CreatedAt:         createdAt,
	}
}

func newTestResolver(rules []domain.SlaRule, entities map[string]domain.Entity) *Resolver {
	return NewResolver(&fakeRuleRepo{rules: rules}, &fakeEntityRepo{entities: entities}, zap.NewNop())
}

func TestResolveExactBeatsWildcard(t *testing.T) {
	resolver := newTestResolver([]domain.SlaRule{
		activeRule("rule-all", entityID, domain.RulePriorityAll, ruleEpoch.Add(time.Hour)),
		activeRule("rule-high", entityID, domain.TicketPriorityHigh, ruleEpoch),
	}, nil)

	rule, err := resolver.Resolve(context.Background(), entityID, domain.TicketPriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "rule-high", rule.ID)
}

func TestResolveWildcardWhenNoExact(t *testing.T) {
	resolver := newTestResolver([]domain.SlaRule{
		activeRule("rule-all", entityID, domain.RulePriorityAll, ruleEpoch),
	}, nil)

	rule, err := resolver.Resolve(context.Background(), entityID, domain.TicketPriorityLow)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "rule-all", rule.ID)
}

func TestResolveNewestWins(t *testing.T) {
	resolver := newTestResolver([]domain.SlaRule{
		activeRule("rule-old", entityID, domain.TicketPriorityHigh, ruleEpoch),
		activeRule("rule-new", entityID, domain.TicketPriorityHigh, ruleEpoch.Add(24*time.Hour)),
	}, nil)

	rule, err := resolver.Resolve(context.Background(), entityID, domain.TicketPriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "rule-new", rule.ID)
}

func TestResolveLowestIDBreaksCreatedAtTie(t *testing.T) {
	resolver := newTestResolver([]domain.SlaRule{
		activeRule("rule-b", entityID, domain.TicketPriorityHigh, ruleEpoch),
		activeRule("rule-a", entityID, domain.TicketPriorityHigh, ruleEpoch),
	}, nil)

	rule, err := resolver.Resolve(context.Background(), entityID, domain.TicketPriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "rule-a", rule.ID)
}

func TestResolveFallsBackToParent(t *testing.T) {
	parent := parentID
	resolver := newTestResolver(
		[]domain.SlaRule{activeRule("rule-parent", parentID, domain.RulePriorityAll, ruleEpoch)},
		map[string]domain.Entity{entityID: {ID: entityID, ParentID: &parent, IsActive: true}},
	)

	rule, err := resolver.Resolve(context.Background(), entityID, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "rule-parent", rule.ID)
}

func TestResolveEntityRuleShadowsParent(t *testing.T) {
	parent := parentID
	resolver := newTestResolver(
		[]domain.SlaRule{
			activeRule("rule-parent", parentID, domain.TicketPriorityUrgent, ruleEpoch.Add(time.Hour)),
			activeRule("rule-own", entityID, domain.RulePriorityAll, ruleEpoch),
		},
		map[string]domain.Entity{entityID: {ID: entityID, ParentID: &parent, IsActive: true}},
	)

	rule, err := resolver.Resolve(context.Background(), entityID, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "rule-own", rule.ID)
}

func TestResolveNoMatchReturnsNil(t *testing.T) {
	resolver := newTestResolver(nil, nil)

	rule, err := resolver.Resolve(context.Background(), entityID, domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.Nil(t, rule)
}
