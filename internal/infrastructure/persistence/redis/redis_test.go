package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

func newTestCache(t *testing.T, m *miniredis.Miniredis) *Cache {
	t.Helper()
	port, err := strconv.Atoi(m.Port())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Host = m.Host()
	cfg.Port = port
	cfg.MaxRetries = -1

	cache, err := NewCache(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

// failSets makes every SET on the client fail, leaving other commands intact.
type failSets struct{}

func (failSets) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failSets) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "set" {
			err := errors.New("READONLY replica")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failSets) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCKER
// ══════════════════════════════════════════════════════════════════════════════

func TestLocker_SerializesAcrossClients(t *testing.T) {
	m := miniredis.RunT(t)
	a := NewLocker(newTestCache(t, m), 5*time.Second)
	b := NewLocker(newTestCache(t, m), 5*time.Second)

	ctx := context.Background()
	heldA, unlockA, err := a.Lock(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, heldA.Err())

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, _, err = b.Lock(waitCtx, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)
	assert.True(t, shared.IsRetryable(err))

	// Other keys are independent.
	_, unlockBob, err := b.Lock(ctx, "bob")
	require.NoError(t, err)
	unlockBob()

	var (
		mu    sync.Mutex
		order []string
	)
	acquired := make(chan struct{})
	go func() {
		_, unlock, err := b.Lock(ctx, "alice")
		if err == nil {
			mu.Lock()
			order = append(order, "b")
			mu.Unlock()
			unlock()
		}
		close(acquired)
	}()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	order = append(order, "a")
	mu.Unlock()
	unlockA()
	assert.ErrorIs(t, heldA.Err(), context.Canceled)

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second locker never acquired the lock")
	}
	assert.Equal(t, []string{"a", "b"}, order)
	assert.False(t, m.Exists(LockKey("alice")))
}

func TestLocker_ReleaseKeepsForeignToken(t *testing.T) {
	m := miniredis.RunT(t)
	l := NewLocker(newTestCache(t, m), 5*time.Second)

	_, unlock, err := l.Lock(context.Background(), "alice")
	require.NoError(t, err)

	// The key expired and another process took it.
	require.NoError(t, m.Set(LockKey("alice"), "other-token"))

	unlock()
	unlock()

	got, err := m.Get(LockKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, "other-token", got)
}

func TestLocker_WatchdogExtendsHeldLock(t *testing.T) {
	m := miniredis.RunT(t)
	ttl := 300 * time.Millisecond
	l := NewLocker(newTestCache(t, m), ttl)

	held, unlock, err := l.Lock(context.Background(), "alice")
	require.NoError(t, err)
	defer unlock()

	m.FastForward(200 * time.Millisecond)
	require.LessOrEqual(t, m.TTL(LockKey("alice")), 100*time.Millisecond)

	assert.Eventually(t, func() bool {
		return m.TTL(LockKey("alice")) > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, held.Err())
}

func TestLocker_LostLockCancelsHolder(t *testing.T) {
	tests := map[string]func(m *miniredis.Miniredis, key string){
		"expired": func(m *miniredis.Miniredis, _ string) { m.FastForward(time.Second) },
		"stolen": func(m *miniredis.Miniredis, key string) {
			_ = m.Set(key, "other-token")
		},
	}

	for name, lose := range tests {
		t.Run(name, func(t *testing.T) {
			m := miniredis.RunT(t)
			l := NewLocker(newTestCache(t, m), 300*time.Millisecond)

			held, unlock, err := l.Lock(context.Background(), "alice")
			require.NoError(t, err)
			defer unlock()

			lose(m, LockKey("alice"))

			select {
			case <-held.Done():
			case <-time.After(2 * time.Second):
				t.Fatal("held context not cancelled after the lock was lost")
			}
			cause := context.Cause(held)
			assert.ErrorIs(t, cause, shared.ErrLockNotAcquired)
			assert.True(t, shared.IsRetryable(cause))
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE CACHE
// ══════════════════════════════════════════════════════════════════════════════

func newProfileCache(t *testing.T) (*ProfileCache, *memory.ProfileStore, *Cache, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	cache := newTestCache(t, m)
	store := memory.NewProfileStore()
	return NewProfileCache(store, cache, time.Minute, logger.NewNop()), store, cache, m
}

func TestProfileCache_ReadThroughThenRefreshOnSave(t *testing.T) {
	pc, store, _, m := newProfileCache(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	p := progression.NewUserProfile("alice", "wizard", now)
	p.TotalXPEarned = 100
	require.NoError(t, store.SaveProfile(ctx, p))

	got, err := pc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, got.TotalXPEarned)
	assert.True(t, m.Exists(ProfileKey("alice")))

	// Later reads come from the cache, not the store.
	behind := p.Clone()
	behind.TotalXPEarned = 999
	require.NoError(t, store.SaveProfile(ctx, behind))
	got, err = pc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, got.TotalXPEarned)

	p.TotalXPEarned = 200
	require.NoError(t, pc.SaveProfile(ctx, p))

	got, err = pc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 200, got.TotalXPEarned)

	stored, err := store.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 200, stored.TotalXPEarned)

	_, err = pc.GetProfile(ctx, "nobody")
	assert.True(t, shared.IsNotFound(err))
	assert.False(t, m.Exists(ProfileKey("nobody")))
}

func TestProfileCache_FailedRefreshDropsEntry(t *testing.T) {
	pc, store, cache, m := newProfileCache(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	p := progression.NewUserProfile("alice", "wizard", now)
	p.TotalXPEarned = 100
	require.NoError(t, pc.SaveProfile(ctx, p))
	require.True(t, m.Exists(ProfileKey("alice")))

	cache.Client().AddHook(failSets{})

	p.TotalXPEarned = 300
	require.NoError(t, pc.SaveProfile(ctx, p))
	assert.False(t, m.Exists(ProfileKey("alice")))

	stored, err := store.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 300, stored.TotalXPEarned)

	// Reads fall through to the store while the cache cannot be filled.
	got, err := pc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 300, got.TotalXPEarned)
}

func TestProfileCache_CreatedChallengesInvalidateLists(t *testing.T) {
	pc, store, _, m := newProfileCache(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	p := progression.NewUserProfile("alice", "wizard", now)
	require.NoError(t, pc.SaveProfile(ctx, p))

	list, err := pc.ListChallenges(ctx, "alice", true)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, m.Exists(ChallengesKey("alice", true)))

	// A write that bypasses the cache is not visible until invalidation.
	first := progression.ChallengeInstance{ID: "c1", UserID: "alice", Type: "quick_recall", CreatedAt: now}
	require.NoError(t, store.SaveProfile(ctx, p, first))
	list, err = pc.ListChallenges(ctx, "alice", true)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Saving without new challenges keeps the list cached.
	require.NoError(t, pc.SaveProfile(ctx, p))
	assert.True(t, m.Exists(ChallengesKey("alice", true)))

	second := progression.ChallengeInstance{ID: "c2", UserID: "alice", Type: "room_mastery", CreatedAt: now.Add(time.Minute)}
	require.NoError(t, pc.SaveProfile(ctx, p, second))
	assert.False(t, m.Exists(ChallengesKey("alice", true)))
	assert.False(t, m.Exists(ChallengesKey("alice", false)))

	list, err = pc.ListChallenges(ctx, "alice", true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c1", list[1].ID)
}
