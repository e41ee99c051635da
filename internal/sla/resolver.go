package sla

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// Resolver selects the SLA rule governing a ticket. Candidates are the active
// rules of the ticket's entity; when none match, the parent entity's rules are
// tried (one level up). Among matches an exact priority beats the "all"
// wildcard, newer rules beat older ones, and the lexicographically lowest id
// breaks remaining ties so resolution stays deterministic.
type Resolver struct {
	rules    repository.SlaRuleRepository
	entities repository.EntityRepository
	logger   *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(rules repository.SlaRuleRepository, entities repository.EntityRepository, logger *zap.Logger) *Resolver {
	return &Resolver{rules: rules, entities: entities, logger: logger}
}

// Resolve returns the governing rule, or nil, nil when no rule applies. A nil
// result means the ticket carries no SLA.
func (r *Resolver) Resolve(ctx context.Context, entityID string, priority domain.TicketPriority) (*domain.SlaRule, error) {
	rule, err := r.resolveScope(ctx, entityID, priority)
	if err != nil || rule != nil {
		return rule, err
	}

	entity, err := r.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil || entity.ParentID == nil {
		return nil, nil
	}
	return r.resolveScope(ctx, *entity.ParentID, priority)
}

func (r *Resolver) resolveScope(ctx context.Context, entityID string, priority domain.TicketPriority) (*domain.SlaRule, error) {
	candidates, err := r.rules.ListActiveByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	var exact, wildcard *domain.SlaRule
	for i := range candidates {
		rule := &candidates[i]
		switch rule.Priority {
		case priority:
			exact = betterOf(exact, rule)
		case domain.RulePriorityAll:
			wildcard = betterOf(wildcard, rule)
		}
	}
	if exact != nil {
		return exact, nil
	}
	return wildcard, nil
}

// betterOf keeps the newer rule, falling back to the lower id on equal
// creation times.
func betterOf(current, candidate *domain.SlaRule) *domain.SlaRule {
	if current == nil {
		return candidate
	}
	if candidate.CreatedAt.After(current.CreatedAt) {
		return candidate
	}
	if candidate.CreatedAt.Equal(current.CreatedAt) && candidate.ID < current.ID {
		return candidate
	}
	return current
}
