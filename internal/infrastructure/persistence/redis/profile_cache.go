package redis

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/pkg/circuitbreaker"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

// ProfileCache decorates a progression.ProfileStore with a read-through Redis cache.
// Writes go to the underlying store first; the cache entry is replaced afterwards.
// Cache failures are logged and never fail the call. After repeated failures
// the breaker opens and the cache is bypassed until it recovers.
type ProfileCache struct {
	next    progression.ProfileStore
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(next progression.ProfileStore, cache *Cache, ttl time.Duration, log *logger.Logger) *ProfileCache {
	if ttl <= 0 {
		ttl = TTLProfileCache
	}
	log = log.With(logger.Component("profile_cache"))
	return &ProfileCache{
		next:  next,
		cache: cache,
		ttl:   ttl,
		breaker: circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("cache breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		log: log,
	}
}

// guarded runs a cache call through the breaker. A miss is not a failure.
func (p *ProfileCache) guarded(ctx context.Context, fn func(ctx context.Context) error) error {
	var miss bool
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrCacheMiss) {
			miss = true
			return nil
		}
		return err
	})
	if miss {
		return ErrCacheMiss
	}
	return err
}

// GetProfile returns the cached profile or loads it from the underlying store.
func (p *ProfileCache) GetProfile(ctx context.Context, userID string) (*progression.UserProfile, error) {
	var cached progression.UserProfile
	err := p.guarded(ctx, func(ctx context.Context) error {
		return p.cache.Get(ctx, ProfileKey(userID), &cached)
	})
	if err == nil {
		cached.Normalize()
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		p.log.Warn("profile cache read failed", logger.UserID(userID), logger.Err(err))
	}

	profile, err := p.next.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := p.guarded(ctx, func(ctx context.Context) error {
		return p.cache.Set(ctx, ProfileKey(userID), profile, p.ttl)
	}); err != nil {
		p.log.Warn("profile cache fill failed", logger.UserID(userID), logger.Err(err))
	}
	return profile, nil
}

// SaveProfile persists through the underlying store, then refreshes the cache.
func (p *ProfileCache) SaveProfile(ctx context.Context, profile *progression.UserProfile, created ...progression.ChallengeInstance) error {
	if err := p.next.SaveProfile(ctx, profile, created...); err != nil {
		return err
	}

	if err := p.guarded(ctx, func(ctx context.Context) error {
		return p.cache.Set(ctx, ProfileKey(profile.ID), profile, p.ttl)
	}); err != nil {
		p.log.Warn("profile cache refresh failed", logger.UserID(profile.ID), logger.Err(err))
		// A stale entry is worse than none.
		_ = p.cache.Delete(ctx, ProfileKey(profile.ID))
	}
	if len(created) > 0 {
		if err := p.cache.Delete(ctx, ChallengesKey(profile.ID, true), ChallengesKey(profile.ID, false)); err != nil {
			p.log.Warn("challenge cache invalidation failed", logger.UserID(profile.ID), logger.Err(err))
		}
	}
	return nil
}

// ListChallenges returns cached challenges or loads them from the underlying store.
func (p *ProfileCache) ListChallenges(ctx context.Context, userID string, activeOnly bool) ([]progression.ChallengeInstance, error) {
	key := ChallengesKey(userID, activeOnly)

	var cached []progression.ChallengeInstance
	if err := p.guarded(ctx, func(ctx context.Context) error {
		return p.cache.Get(ctx, key, &cached)
	}); err == nil {
		return cached, nil
	}

	list, err := p.next.ListChallenges(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []progression.ChallengeInstance{}
	}
	if err := p.guarded(ctx, func(ctx context.Context) error {
		return p.cache.Set(ctx, key, list, p.ttl)
	}); err != nil {
		p.log.Warn("challenge cache fill failed", logger.UserID(userID), logger.Err(err))
	}
	return list, nil
}
