// Package cache provides Redis-backed read-through decorators over the rule
// and business-hours repositories. Every decorator degrades to a pass-through
// when the client is nil or Redis misbehaves; cache trouble never surfaces as
// an engine error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// get unmarshals the cached value into dest, reporting whether it was found.
func (s *store) get(ctx context.Context, key string, dest any) bool {
	if s.client == nil {
		return false
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		if s.logger != nil {
			s.logger.Debug("cache entry malformed, dropping", zap.String("key", key), zap.Error(err))
		}
		_ = s.client.Del(ctx, key).Err()
		return false
	}
	return true
}

func (s *store) set(ctx context.Context, key string, value any) {
	if s.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *store) invalidate(ctx context.Context, keys ...string) {
	if s.client == nil || len(keys) == 0 {
		return
	}
	_ = s.client.Del(ctx, keys...).Err()
}
