package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "palace.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	store, path := openStore(t)
	require.NoError(t, store.Close())

	again, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer again.Close()

	var applied int
	require.NoError(t, again.db.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)

	migrations, err := again.AppliedMigrations(context.Background())
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "0001_palace.sql", migrations[0].Name)
	assert.Equal(t, "0002_progression.sql", migrations[1].Name)
	assert.False(t, migrations[0].AppliedAt.IsZero())
}

func TestStore_Rooms(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	kitchen := &palace.Room{UserID: "u1", Name: "Kitchen", Description: "food", Connections: []string{"Hall"}, CreatedAt: t0}
	require.NoError(t, store.CreateRoom(ctx, kitchen))
	require.NoError(t, store.CreateRoom(ctx, &palace.Room{UserID: "u1", Name: "Hall", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, store.CreateRoom(ctx, &palace.Room{UserID: "u2", Name: "Kitchen", CreatedAt: t0}))

	err := store.CreateRoom(ctx, &palace.Room{UserID: "u1", Name: "Kitchen", CreatedAt: t0})
	assert.ErrorIs(t, err, shared.ErrRoomExists)

	got, err := store.GetRoom(ctx, "u1", "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hall"}, got.Connections)
	assert.True(t, got.CreatedAt.Equal(t0))

	_, err = store.GetRoom(ctx, "u1", "Attic")
	assert.ErrorIs(t, err, shared.ErrRoomNotFound)

	rooms, err := store.ListRooms(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Kitchen", rooms[0].Name)
	assert.Equal(t, "Hall", rooms[1].Name)
	assert.Empty(t, rooms[1].Connections)
}

func TestStore_Locations(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateRoom(ctx, &palace.Room{UserID: "u1", Name: "Kitchen", CreatedAt: t0}))

	loc := &palace.Location{
		ID:           "loc-1",
		UserID:       "u1",
		Room:         "Kitchen",
		Position:     shared.Position{X: 1.5, Y: 2, Z: -1},
		VisualAnchor: "a glowing salt shaker",
		Content:      "NaCl",
		Keywords:     []string{"salt", "chemistry"},
		CreatedAt:    t0,
		LastAccessed: t0,
	}
	require.NoError(t, store.AddLocation(ctx, loc))
	require.NoError(t, store.AddLocation(ctx, &palace.Location{ID: "loc-2", UserID: "u1", Room: "Kitchen", Content: "pepper", CreatedAt: t0, LastAccessed: t0}))

	err := store.AddLocation(ctx, &palace.Location{ID: "loc-3", UserID: "u1", Room: "Attic", Content: "x", CreatedAt: t0, LastAccessed: t0})
	assert.ErrorIs(t, err, shared.ErrRoomNotFound)

	later := t0.Add(48 * time.Hour)
	require.NoError(t, store.TouchLocations(ctx, "u1", []string{"loc-1"}, later))

	locs, err := store.ListLocations(ctx, "u1", "Kitchen")
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, loc.Position, locs[0].Position)
	assert.Equal(t, []string{"salt", "chemistry"}, locs[0].Keywords)
	assert.True(t, locs[0].LastAccessed.Equal(later))
	assert.True(t, locs[1].LastAccessed.Equal(t0))
	assert.Empty(t, locs[1].Keywords)

	all, err := store.ListLocations(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := store.ListLocations(ctx, "u2", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Profiles(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	_, err := store.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	p := progression.NewUserProfile("u1", "sage", t0)
	p.Level = 3
	p.TotalXPEarned = 420
	p.LearningPaths["memory_palace_basics"] = 20
	p.Achievements = append(p.Achievements, progression.AchievementRecord{ID: "first_room", Unlocked: true, UnlockedAt: t0, XPReward: 50})

	first := progression.ChallengeInstance{ID: "c1", UserID: "u1", Type: "quick_recall", Targets: []string{"a", "b"}, Difficulty: shared.Difficulty("easy"), XPReward: 50, CreatedAt: t0}
	p.AddActiveChallenge(first.ID)
	require.NoError(t, store.SaveProfile(ctx, p, first))

	got, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, 420, got.TotalXPEarned)
	assert.InDelta(t, 20.0, got.LearningPaths["memory_palace_basics"], 0.001)
	assert.True(t, got.HasAchievement("first_room"))
	assert.Equal(t, []string{"c1"}, got.ActiveChallenges)

	second := progression.ChallengeInstance{ID: "c2", UserID: "u1", Type: "room_mastery", Targets: []string{"Kitchen"}, XPReward: 150, CreatedAt: t0.Add(time.Hour)}
	got.Level = 4
	require.NoError(t, store.SaveProfile(ctx, got, second))

	challenges, err := store.ListChallenges(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, challenges, 2)
	assert.Equal(t, "c2", challenges[0].ID)
	assert.Equal(t, []string{"a", "b"}, challenges[1].Targets)

	reloaded, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Level)
}

func TestStore_SaveProfileIsAtomic(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	p := progression.NewUserProfile("u1", "sage", t0)
	dup := progression.ChallengeInstance{ID: "c1", UserID: "u1", Type: "quick_recall", CreatedAt: t0}
	require.NoError(t, store.SaveProfile(ctx, p, dup))

	p.Level = 9
	err := store.SaveProfile(ctx, p, dup)
	require.Error(t, err)
	assert.True(t, shared.IsStorageUnavailable(err))

	got, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Level)
}
