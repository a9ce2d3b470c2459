package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only if the lock is still held by the caller's token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker serializes work per key across processes using SET NX PX.
//
// While a lock is held a watchdog extends its TTL every ttl/3. If the lock is
// lost (the key expired or now carries another token) or cannot be extended
// before it would expire, the context returned by Lock is cancelled so the
// holder stops before another process takes over.
type Locker struct {
	cache        *Cache
	ttl          time.Duration
	pollInterval time.Duration
	extendEvery  time.Duration
}

// NewLocker creates a new distributed Locker.
func NewLocker(cache *Cache, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	return &Locker{
		cache:        cache,
		ttl:          ttl,
		pollInterval: 25 * time.Millisecond,
		extendEvery:  ttl / 3,
	}
}

// Lock blocks until the lock for key is acquired or ctx is done.
// The returned context is derived from ctx and is cancelled when the lock is
// lost or released. The returned func releases the lock; extra calls are no-ops.
func (l *Locker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	token := uuid.NewString()
	lockKey := LockKey(key)

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.cache.SetNX(ctx, lockKey, token, l.ttl)
		if err != nil {
			return nil, nil, shared.WrapError("lock", "Acquire", shared.ErrStorageUnavailable, "redis lock failed", err)
		}
		if ok {
			held, release := l.hold(ctx, lockKey, token)
			return held, release, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil, shared.WrapError("lock", "Acquire", shared.ErrLockNotAcquired, "lock wait cancelled", ctx.Err())
		case <-ticker.C:
		}
	}
}

// hold starts the watchdog for an acquired lock.
func (l *Locker) hold(ctx context.Context, lockKey, token string) (context.Context, func()) {
	held, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		l.watch(held, cancel, stop, lockKey, token)
	}()

	var once sync.Once
	return held, func() {
		once.Do(func() {
			close(stop)
			<-done
			cancel(context.Canceled)

			// Release must run even if the request context is already cancelled.
			rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer rcancel()
			_ = releaseScript.Run(rctx, l.cache.Client(), []string{lockKey}, token).Err()
		})
	}
}

func (l *Locker) watch(held context.Context, cancel context.CancelCauseFunc, stop <-chan struct{}, lockKey, token string) {
	ticker := time.NewTicker(l.extendEvery)
	defer ticker.Stop()

	expires := time.Now().Add(l.ttl)
	for {
		select {
		case <-stop:
			return
		case <-held.Done():
			return
		case <-ticker.C:
		}

		ctx, c := context.WithTimeout(context.Background(), l.extendEvery)
		n, err := extendScript.Run(ctx, l.cache.Client(), []string{lockKey}, token, l.ttl.Milliseconds()).Int64()
		c()

		switch {
		case err == nil && n == 1:
			expires = time.Now().Add(l.ttl)
		case err == nil:
			cancel(shared.WrapError("lock", "Extend", shared.ErrLockNotAcquired, "lock lost", nil))
			return
		case !time.Now().Add(l.extendEvery).Before(expires):
			// The next attempt would come after the key expires.
			cancel(shared.WrapError("lock", "Extend", shared.ErrLockNotAcquired, "lock could not be extended", err))
			return
		}
	}
}
