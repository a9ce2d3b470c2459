package postgres

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// connect opens MP_TEST_DATABASE_URL and migrates it, or skips the test.
func connect(t *testing.T) *Connection {
	t.Helper()
	url := strings.TrimSpace(os.Getenv("MP_TEST_DATABASE_URL"))
	if url == "" {
		t.Skip("set MP_TEST_DATABASE_URL to run PostgreSQL integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := NewConnection(ctx, url, DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	_, err = NewMigrator(conn).Migrate(ctx)
	require.NoError(t, err)
	return conn
}

func uniqueUser(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestPalaceRepository_Integration(t *testing.T) {
	conn := connect(t)
	repo := NewPalaceRepository(conn)
	ctx := context.Background()
	user := uniqueUser("palace")
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.CreateRoom(ctx, &palace.Room{UserID: user, Name: "Kitchen", Connections: []string{"Hall"}, CreatedAt: now}))
	assert.ErrorIs(t, repo.CreateRoom(ctx, &palace.Room{UserID: user, Name: "Kitchen", CreatedAt: now}), shared.ErrRoomExists)

	room, err := repo.GetRoom(ctx, user, "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hall"}, room.Connections)

	require.NoError(t, repo.AddLocation(ctx, &palace.Location{
		ID: "l1", UserID: user, Room: "Kitchen", Content: "salt",
		Keywords: []string{"mineral"}, CreatedAt: now, LastAccessed: now,
	}))
	err = repo.AddLocation(ctx, &palace.Location{ID: "l2", UserID: user, Room: "Attic", Content: "x", CreatedAt: now, LastAccessed: now})
	assert.ErrorIs(t, err, shared.ErrRoomNotFound)

	later := now.Add(time.Hour)
	require.NoError(t, repo.TouchLocations(ctx, user, []string{"l1"}, later))

	locs, err := repo.ListLocations(ctx, user, "")
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, []string{"mineral"}, locs[0].Keywords)
	assert.True(t, locs[0].LastAccessed.Equal(later))
}

func TestProfileRepository_Integration(t *testing.T) {
	conn := connect(t)
	repo := NewProfileRepository(conn)
	ctx := context.Background()
	user := uniqueUser("profile")
	now := time.Now().UTC()

	_, err := repo.GetProfile(ctx, user)
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	p := progression.NewUserProfile(user, "coach", now)
	p.TotalXPEarned = 75
	c := progression.ChallengeInstance{ID: uniqueUser("ch"), UserID: user, Type: "quick_recall", Targets: []string{"a"}, CreatedAt: now}
	require.NoError(t, repo.SaveProfile(ctx, p, c))

	got, err := repo.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "coach", got.Personality)
	assert.Equal(t, 75, got.TotalXPEarned)

	list, err := repo.ListChallenges(ctx, user, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}
