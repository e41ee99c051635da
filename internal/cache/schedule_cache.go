package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// CachedBusinessHoursRepository caches weekly schedule entries per scope.
// Calendars change rarely but are read on every deadline computation, so
// even a short TTL removes most of the query load.
type CachedBusinessHoursRepository struct {
	inner repository.BusinessHoursRepository
	store store
}

// NewCachedBusinessHoursRepository builds the decorator. A nil client yields
// a pass-through.
func NewCachedBusinessHoursRepository(inner repository.BusinessHoursRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedBusinessHoursRepository {
	return &CachedBusinessHoursRepository{
		inner: inner,
		store: store{client: client, ttl: ttl, logger: logger},
	}
}

func scheduleKey(entityID *string) string {
	if entityID == nil {
		return "sla:hours:global"
	}
	return "sla:hours:" + *entityID
}

func (r *CachedBusinessHoursRepository) ListActive(ctx context.Context, entityID *string) ([]domain.BusinessHoursEntry, error) {
	var cached []domain.BusinessHoursEntry
	if r.store.get(ctx, scheduleKey(entityID), &cached) {
		return cached, nil
	}
	entries, err := r.inner.ListActive(ctx, entityID)
	if err != nil {
		return nil, err
	}
	r.store.set(ctx, scheduleKey(entityID), entries)
	return entries, nil
}

// Invalidate drops the cached schedule for a scope.
func (r *CachedBusinessHoursRepository) Invalidate(ctx context.Context, entityID *string) {
	r.store.invalidate(ctx, scheduleKey(entityID))
}
