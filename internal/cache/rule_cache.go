package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// CachedSlaRuleRepository wraps a rule repository with a per-entity cache of
// the active rule list. GetByID is not cached; it only runs on cold paths.
type CachedSlaRuleRepository struct {
	inner repository.SlaRuleRepository
	store store
}

// NewCachedSlaRuleRepository builds the decorator. A nil client yields a
// pass-through.
func NewCachedSlaRuleRepository(inner repository.SlaRuleRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedSlaRuleRepository {
	return &CachedSlaRuleRepository{
		inner: inner,
		store: store{client: client, ttl: ttl, logger: logger},
	}
}

func ruleKey(entityID string) string {
	return "sla:rules:" + entityID
}

func (r *CachedSlaRuleRepository) ListActiveByEntity(ctx context.Context, entityID string) ([]domain.SlaRule, error) {
	var cached []domain.SlaRule
	if r.store.get(ctx, ruleKey(entityID), &cached) {
		return cached, nil
	}
	rules, err := r.inner.ListActiveByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	r.store.set(ctx, ruleKey(entityID), rules)
	return rules, nil
}

func (r *CachedSlaRuleRepository) GetByID(ctx context.Context, id string) (*domain.SlaRule, error) {
	return r.inner.GetByID(ctx, id)
}

// Invalidate drops the cached rule list for an entity, for callers that
// mutate rules out of band.
func (r *CachedSlaRuleRepository) Invalidate(ctx context.Context, entityID string) {
	r.store.invalidate(ctx, ruleKey(entityID))
}
