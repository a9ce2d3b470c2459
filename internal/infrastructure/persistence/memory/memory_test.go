package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestPalaceRepositoryIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	repo := NewPalaceRepository()

	room := &palace.Room{UserID: "u1", Name: "Kitchen", Connections: []string{"Hall"}}
	require.NoError(t, repo.CreateRoom(ctx, room))
	room.Connections[0] = "mutated"

	got, err := repo.GetRoom(ctx, "u1", "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hall"}, got.Connections)

	got.Connections[0] = "mutated again"
	again, err := repo.GetRoom(ctx, "u1", "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hall"}, again.Connections)

	assert.ErrorIs(t, repo.CreateRoom(ctx, &palace.Room{UserID: "u1", Name: "Kitchen"}), shared.ErrRoomExists)

	_, err = repo.GetRoom(ctx, "u2", "Kitchen")
	assert.True(t, shared.IsNotFound(err))
}

func TestPalaceRepositoryLocations(t *testing.T) {
	ctx := context.Background()
	repo := NewPalaceRepository()

	err := repo.AddLocation(ctx, &palace.Location{ID: "a", UserID: "u1", Room: "Kitchen"})
	assert.ErrorIs(t, err, shared.ErrRoomNotFound)

	require.NoError(t, repo.CreateRoom(ctx, &palace.Room{UserID: "u1", Name: "Kitchen"}))
	require.NoError(t, repo.CreateRoom(ctx, &palace.Room{UserID: "u1", Name: "Hall"}))
	for _, loc := range []*palace.Location{
		{ID: "a", UserID: "u1", Room: "Kitchen", LastAccessed: t0},
		{ID: "b", UserID: "u1", Room: "Hall", LastAccessed: t0},
		{ID: "c", UserID: "u1", Room: "Kitchen", LastAccessed: t0},
	} {
		require.NoError(t, repo.AddLocation(ctx, loc))
	}

	kitchen, err := repo.ListLocations(ctx, "u1", "Kitchen")
	require.NoError(t, err)
	assert.Len(t, kitchen, 2)

	all, err := repo.ListLocations(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	later := t0.Add(time.Hour)
	require.NoError(t, repo.TouchLocations(ctx, "u1", []string{"a", "b"}, later))
	all, err = repo.ListLocations(ctx, "u1", "")
	require.NoError(t, err)
	for _, loc := range all {
		if loc.ID == "c" {
			assert.Equal(t, t0, loc.LastAccessed)
			continue
		}
		assert.Equal(t, later, loc.LastAccessed, loc.ID)
	}

	none, err := repo.ListLocations(ctx, "nobody", "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
	assert.NoError(t, repo.TouchLocations(ctx, "nobody", []string{"a"}, later))
}

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()

	_, err := store.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	profile := progression.NewUserProfile("u1", "encouraging_coach", t0)
	first := progression.ChallengeInstance{ID: "ch_1", UserID: "u1", Targets: []string{"x"}, CreatedAt: t0}
	second := progression.ChallengeInstance{ID: "ch_2", UserID: "u1", CreatedAt: t0.Add(time.Minute), Completed: true}
	require.NoError(t, store.SaveProfile(ctx, profile, first))
	require.NoError(t, store.SaveProfile(ctx, profile, second))

	profile.TotalXPEarned = 999
	got, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, got.TotalXPEarned)

	all, err := store.ListChallenges(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ch_2", all[0].ID, "newest first")

	active, err := store.ListChallenges(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ch_1", active[0].ID)
}

func TestKeyedLockerSerializesSameKey(t *testing.T) {
	locker := NewKeyedLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, unlock, err := locker.Lock(ctx, "u1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locker.slots, "idle keys are released")
}

func TestKeyedLockerCancellation(t *testing.T) {
	locker := NewKeyedLocker()

	held, unlock, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, held.Err())

	// Other keys are independent.
	_, other, err := locker.Lock(context.Background(), "u2")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err = locker.Lock(ctx, "u1")
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.ErrorIs(t, held.Err(), context.Canceled)

	_, again, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)
	again()
	assert.Empty(t, locker.slots)
}
