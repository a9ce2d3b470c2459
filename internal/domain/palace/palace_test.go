package palace_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/memory"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// seqIDs выдаёт предсказуемые ID: loc_1, loc_2, ...
type seqIDs struct{ n int }

func (s *seqIDs) LocationID(_, _ string, _ time.Time) string {
	s.n++
	return fmt.Sprintf("loc_%d", s.n)
}

func newService() *palace.Service {
	return palace.NewService(memory.NewPalaceRepository(), &seqIDs{}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

func TestNewRoom(t *testing.T) {
	room, err := palace.NewRoom("u1", "  Kitchen ", " warm ", []string{"Hall", "", "Hall", "Kitchen", " Garden "}, t0)
	require.NoError(t, err)

	assert.Equal(t, "Kitchen", room.Name)
	assert.Equal(t, "warm", room.Description)
	assert.Equal(t, []string{"Hall", "Garden"}, room.Connections)
	assert.True(t, room.IsConnected())
	assert.Equal(t, t0, room.CreatedAt)

	_, err = palace.NewRoom("u1", "   ", "", nil, t0)
	assert.ErrorIs(t, err, shared.ErrEmptyRoomName)
	assert.True(t, shared.IsValidation(err))
}

func TestNewLocation(t *testing.T) {
	loc, err := palace.NewLocation("id1", palace.NewLocationParams{
		UserID:       "u1",
		Room:         "Kitchen",
		Content:      "  milk ",
		VisualAnchor: " giant cow ",
		Keywords:     []string{" dairy", "", "  "},
	}, t0)
	require.NoError(t, err)

	assert.Equal(t, "milk", loc.Content)
	assert.Equal(t, "giant cow", loc.VisualAnchor)
	assert.Equal(t, []string{"dairy"}, loc.Keywords)
	assert.True(t, loc.HasVisualAnchor())
	assert.Equal(t, t0, loc.LastAccessed)

	_, err = palace.NewLocation("id2", palace.NewLocationParams{Room: "Kitchen", Content: " "}, t0)
	assert.ErrorIs(t, err, shared.ErrEmptyContent)
}

func TestLocationRelevance(t *testing.T) {
	loc := &palace.Location{
		Content:      "Buy MILK and bread",
		VisualAnchor: "a milk waterfall",
		Keywords:     []string{"milk", "Milkshake"},
	}

	assert.Equal(t, 3, loc.Relevance("milk"), "keywords count once")
	assert.Equal(t, 1, loc.Relevance("BREAD"))
	assert.Equal(t, 0, loc.Relevance("cheese"))
}

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

func TestSchedule(t *testing.T) {
	now := t0.AddDate(0, 0, 10)

	fresh := &palace.Location{ID: "fresh", CreatedAt: now.Add(-time.Hour), LastAccessed: now.Add(-time.Hour)}
	// Точки 1, 3, 7 прошли, последнее обращение до седьмого дня.
	overdue := &palace.Location{ID: "overdue", CreatedAt: t0, LastAccessed: t0.AddDate(0, 0, 2)}
	// Те же точки, но обращение после седьмого дня.
	reviewed := &palace.Location{ID: "reviewed", CreatedAt: t0, LastAccessed: t0.AddDate(0, 0, 8)}
	old := &palace.Location{ID: "old", CreatedAt: t0.AddDate(-1, 0, 0), LastAccessed: now}

	items := palace.Schedule([]*palace.Location{fresh, reviewed, old, overdue}, palace.DefaultReviewIntervals, now)
	require.Len(t, items, 4)

	byID := make(map[string]palace.ReviewItem, len(items))
	for _, it := range items {
		byID[it.LocationID] = it
	}

	assert.Equal(t, "overdue", items[0].LocationID, "due items come first")
	assert.Equal(t, "old", items[3].LocationID, "mastered items come last")

	o := byID["overdue"]
	assert.True(t, o.Due)
	assert.Equal(t, 3, o.ReviewsPassed)
	assert.Equal(t, 14, o.IntervalDays)
	require.NotNil(t, o.LastDue)
	assert.Equal(t, t0.AddDate(0, 0, 7), *o.LastDue)
	require.NotNil(t, o.NextReview)
	assert.Equal(t, t0.AddDate(0, 0, 14), *o.NextReview)

	r := byID["reviewed"]
	assert.False(t, r.Due)
	assert.Equal(t, 3, r.ReviewsPassed)

	f := byID["fresh"]
	assert.False(t, f.Due)
	assert.Zero(t, f.ReviewsPassed)
	assert.Nil(t, f.LastDue)
	assert.Equal(t, 1, f.IntervalDays)

	m := byID["old"]
	assert.True(t, m.Mastered)
	assert.Nil(t, m.NextReview)
	assert.Equal(t, len(palace.DefaultReviewIntervals), m.ReviewsPassed)
}

func TestScheduleFallsBackToDefaultIntervals(t *testing.T) {
	loc := &palace.Location{ID: "a", CreatedAt: t0, LastAccessed: t0}
	items := palace.Schedule([]*palace.Location{loc}, nil, t0.Add(36*time.Hour))

	require.Len(t, items, 1)
	assert.True(t, items[0].Due)
	assert.Equal(t, 3, items[0].IntervalDays)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

func TestServiceCreateRoom(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.CreateRoom(ctx, "u1", "Kitchen", "", nil, t0)
	require.NoError(t, err)

	_, err = svc.CreateRoom(ctx, "u1", " Kitchen ", "", nil, t0)
	assert.ErrorIs(t, err, shared.ErrRoomExists)
	assert.True(t, shared.IsAlreadyExists(err))

	// Имена уникальны только в пределах пользователя.
	_, err = svc.CreateRoom(ctx, "u2", "Kitchen", "", nil, t0)
	assert.NoError(t, err)
}

func TestServiceStoreMemoryUnknownRoom(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	for _, name := range []string{"Kitchen", "Hall"} {
		_, err := svc.CreateRoom(ctx, "u1", name, "", nil, t0)
		require.NoError(t, err)
	}

	_, err := svc.StoreMemory(ctx, palace.NewLocationParams{UserID: "u1", Room: "Attic", Content: "x"}, t0)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, []string{"Kitchen", "Hall"}, shared.OptionsOf(err))
	assert.Empty(t, shared.ErrRoomNotFound.Options, "sentinel must not be mutated")
}

func TestServiceJourney(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.CreateRoom(ctx, "u1", "Kitchen", "the kitchen", []string{"Hall"}, t0)
	require.NoError(t, err)

	positions := []shared.Position{{X: 2}, {X: 1, Y: 5}, {X: 1, Y: 1, Z: 3}}
	for i, pos := range positions {
		_, err := svc.StoreMemory(ctx, palace.NewLocationParams{
			UserID:   "u1",
			Room:     "Kitchen",
			Content:  fmt.Sprintf("memory %d", i),
			Position: pos,
		}, t0)
		require.NoError(t, err)
	}

	later := t0.Add(time.Hour)
	journey, err := svc.Journey(ctx, "u1", "Kitchen", true, later)
	require.NoError(t, err)

	require.Equal(t, 3, journey.TotalMemories)
	assert.Equal(t, "the kitchen", journey.Description)
	assert.Equal(t, []string{"memory 2", "memory 1", "memory 0"}, []string{
		journey.Path[0].Content, journey.Path[1].Content, journey.Path[2].Content,
	})
	assert.Equal(t, []string{"Hall"}, journey.ConnectedRooms)

	withoutLinks, err := svc.Journey(ctx, "u1", "Kitchen", false, later)
	require.NoError(t, err)
	assert.Empty(t, withoutLinks.ConnectedRooms)

	ov, err := svc.Overview(ctx, "u1")
	require.NoError(t, err)
	for _, a := range ov.RecentActivity {
		assert.Equal(t, later, a.LastAccessed, "journey touches every stop")
	}
}

func TestServiceSearch(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	for _, name := range []string{"Kitchen", "Hall"} {
		_, err := svc.CreateRoom(ctx, "u1", name, "", nil, t0)
		require.NoError(t, err)
	}
	store := func(room, content, anchor string) {
		_, err := svc.StoreMemory(ctx, palace.NewLocationParams{
			UserID: "u1", Room: room, Content: content, VisualAnchor: anchor,
		}, t0)
		require.NoError(t, err)
	}
	store("Kitchen", "coffee beans", "")
	store("Hall", "Coffee table", "a coffee fountain")
	store("Hall", "umbrella", "")

	res, err := svc.Search(ctx, "u1", " coffee ", "", t0)
	require.NoError(t, err)
	assert.Equal(t, "coffee", res.Query)
	require.Equal(t, 2, res.ResultsCount)
	assert.Equal(t, "Coffee table", res.Results[0].Content)
	assert.Equal(t, 2, res.Results[0].RelevanceScore)

	filtered, err := svc.Search(ctx, "u1", "coffee", "Kitchen", t0)
	require.NoError(t, err)
	require.Equal(t, 1, filtered.ResultsCount)
	assert.Equal(t, "Kitchen", filtered.Results[0].Room)

	none, err := svc.Search(ctx, "u1", "piano", "", t0)
	require.NoError(t, err)
	assert.NotNil(t, none.Results)
	assert.Zero(t, none.ResultsCount)

	_, err = svc.Search(ctx, "u1", "  ", "", t0)
	assert.ErrorIs(t, err, shared.ErrEmptySearchQuery)
}

func TestServiceOverview(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	ov, err := svc.Overview(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, palace.HealthEmpty, ov.Health)
	assert.Zero(t, ov.TotalRooms)

	_, err = svc.CreateRoom(ctx, "u1", "Kitchen", "", []string{"Hall"}, t0)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := svc.StoreMemory(ctx, palace.NewLocationParams{
			UserID: "u1", Room: "Kitchen", Content: fmt.Sprintf("m%d", i),
		}, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	ov, err = svc.Overview(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, palace.HealthExcellent, ov.Health)
	assert.Equal(t, 1, ov.TotalRooms)
	assert.Equal(t, 7, ov.TotalMemories)
	require.Len(t, ov.Rooms, 1)
	assert.Equal(t, 7, ov.Rooms[0].MemoryCount)
	require.Len(t, ov.RecentActivity, 5)
	assert.Equal(t, "loc_7", ov.RecentActivity[0].LocationID, "most recent first")
}

func TestServiceSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.CreateRoom(ctx, "u1", "Hall", "", nil, t0)
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, "u1", "Kitchen", "", []string{"Hall"}, t0)
	require.NoError(t, err)

	_, err = svc.StoreMemory(ctx, palace.NewLocationParams{
		UserID: "u1", Room: "Kitchen", Content: "b", Position: shared.Position{X: 5},
	}, t0)
	require.NoError(t, err)
	_, err = svc.StoreMemory(ctx, palace.NewLocationParams{
		UserID: "u1", Room: "Kitchen", Content: "a", VisualAnchor: "cat", Position: shared.Position{X: 1},
	}, t0)
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, snap.RoomCount)
	assert.Equal(t, 2, snap.MemoryCount)
	assert.Equal(t, 1, snap.ConnectedRooms)
	require.Len(t, snap.Rooms, 2)
	assert.Equal(t, "Hall", snap.Rooms[0].Name)
	assert.Empty(t, snap.Rooms[0].Memories)

	kitchen := snap.Rooms[1].Memories
	require.Len(t, kitchen, 2)
	assert.Equal(t, "loc_2", kitchen[0].ID)
	assert.True(t, kitchen[0].HasVisualAnchor)
	assert.False(t, kitchen[1].HasVisualAnchor)
}

func TestServiceReviewScheduleUnknownRoom(t *testing.T) {
	svc := newService()

	_, err := svc.ReviewSchedule(context.Background(), "u1", "Attic", t0)
	assert.True(t, shared.IsNotFound(err))

	items, err := svc.ReviewSchedule(context.Background(), "u1", "", t0)
	require.NoError(t, err)
	assert.Empty(t, items)
}
