package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/internal/infrastructure/catalog"
	"github.com/alem-hub/memory-palace/internal/infrastructure/identity"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

type fixedRand struct{}

func (fixedRand) Intn(int) int     { return 0 }
func (fixedRand) Float64() float64 { return 0.99 }
func (fixedRand) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type setup struct {
	palace   *palace.Service
	engine   *engine.ProgressionEngine
	profiles *memory.ProfileStore
	clock    engine.Clock
}

func newSetup(t *testing.T) *setup {
	t.Helper()

	cat := catalog.MustDefault()
	profiles := memory.NewProfileStore()
	svc := palace.NewService(memory.NewPalaceRepository(), identity.NewLocationIDs(), cat.ReviewIntervals())
	clock := engine.ClockFunc(func() time.Time { return testNow })

	cfg := engine.DefaultConfig()
	cfg.ChallengesEnabled = false

	eng := engine.New(engine.Deps{
		Profiles: profiles,
		Palace:   svc,
		Catalog:  cat,
		Locker:   memory.NewKeyedLocker(),
		Rand:     fixedRand{},
		IDs:      identity.ChallengeIDs{},
		Clock:    clock,
	}, cfg)

	return &setup{palace: svc, engine: eng, profiles: profiles, clock: clock}
}

// brokenProgression locks like the engine but always fails to evaluate.
type brokenProgression struct {
	*engine.ProgressionEngine
}

func (brokenProgression) EvaluateLocked(context.Context, string, engine.Event) (*engine.ProgressResult, error) {
	return nil, shared.StorageError("progression", "SaveProfile", errors.New("disk full"))
}

// ══════════════════════════════════════════════════════════════════════════════
// PALACE COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateRoomHandler(t *testing.T) {
	s := newSetup(t)
	h := NewCreateRoomHandler(s.palace, s.engine, s.clock, logger.NewNop())
	ctx := context.Background()

	res, err := h.Handle(ctx, CreateRoomCommand{UserID: "u1", Name: "Kitchen", Description: "where food lives"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "Room 'Kitchen' created successfully", res.Message)
	require.NotNil(t, res.Progress)
	assert.Empty(t, res.ProgressError)
	assert.Equal(t, 25, res.Progress.XPGained)
	assert.True(t, res.Progress.NewProfile)

	t.Run("duplicate room fails without scoring", func(t *testing.T) {
		_, err := h.Handle(ctx, CreateRoomCommand{UserID: "u1", Name: "Kitchen"})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrRoomExists)

		p, err := s.profiles.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 25, p.TotalXPEarned)
	})

	t.Run("empty user", func(t *testing.T) {
		_, err := h.Handle(ctx, CreateRoomCommand{Name: "Hall"})
		assert.ErrorIs(t, err, shared.ErrInvalidID)
	})
}

func TestStoreMemoryHandler(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	rooms := NewCreateRoomHandler(s.palace, s.engine, s.clock, logger.NewNop())
	h := NewStoreMemoryHandler(s.palace, s.engine, s.clock, logger.NewNop())

	_, err := rooms.Handle(ctx, CreateRoomCommand{UserID: "u1", Name: "Kitchen"})
	require.NoError(t, err)

	res, err := h.Handle(ctx, StoreMemoryCommand{
		UserID:       "u1",
		Room:         "Kitchen",
		Content:      "Paris is the capital of France",
		VisualAnchor: "Eiffel tower",
		Position:     shared.Position{X: 1, Y: 2, Z: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, "Memory stored in 'Kitchen' at position (1, 2, 0)", res.Message)
	assert.NotEmpty(t, res.LocationID)
	require.NotNil(t, res.Progress)
	assert.Equal(t, 115, res.Progress.XPGained)

	ids := make([]string, 0, len(res.Progress.Achievements))
	for _, a := range res.Progress.Achievements {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{progression.AchievementFirstRoom, progression.AchievementFirstMemory}, ids)

	t.Run("unknown room", func(t *testing.T) {
		_, err := h.Handle(ctx, StoreMemoryCommand{UserID: "u1", Room: "Attic", Content: "x"})
		assert.ErrorIs(t, err, shared.ErrRoomNotFound)
	})
}

func TestJourneyAndSearchHandlers(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	_, err := NewCreateRoomHandler(s.palace, s.engine, s.clock, logger.NewNop()).
		Handle(ctx, CreateRoomCommand{UserID: "u1", Name: "Library"})
	require.NoError(t, err)
	store := NewStoreMemoryHandler(s.palace, s.engine, s.clock, logger.NewNop())
	for _, content := range []string{"Mitochondria is the powerhouse", "Ribosomes build proteins"} {
		_, err := store.Handle(ctx, StoreMemoryCommand{UserID: "u1", Room: "Library", Content: content})
		require.NoError(t, err)
	}

	journey, err := NewTakeJourneyHandler(s.palace, s.engine, s.clock, logger.NewNop()).
		Handle(ctx, TakeJourneyCommand{UserID: "u1", Room: "Library"})
	require.NoError(t, err)
	assert.Equal(t, 2, journey.TotalMemories)
	require.NotNil(t, journey.Progress)
	assert.Equal(t, 14, journey.Progress.BaseXP)

	search := NewSearchMemoriesHandler(s.palace, s.engine, s.clock, logger.NewNop())

	found, err := search.Handle(ctx, SearchMemoriesCommand{UserID: "u1", Query: "proteins"})
	require.NoError(t, err)
	assert.Equal(t, 1, found.ResultsCount)
	assert.Equal(t, 10, found.Progress.BaseXP)

	missed, err := search.Handle(ctx, SearchMemoriesCommand{UserID: "u1", Query: "volcano"})
	require.NoError(t, err)
	assert.Zero(t, missed.ResultsCount)
	assert.Equal(t, 5, missed.Progress.BaseXP)
}

func TestPalaceCommand_ProgressionFailureDegrades(t *testing.T) {
	s := newSetup(t)
	h := NewCreateRoomHandler(s.palace, brokenProgression{s.engine}, s.clock, logger.NewNop())

	res, err := h.Handle(context.Background(), CreateRoomCommand{UserID: "u1", Name: "Garage"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Nil(t, res.Progress)
	assert.Contains(t, res.ProgressError, "disk full")

	names, err := s.palace.RoomNames(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Garage"}, names)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func TestCompleteTaskHandler(t *testing.T) {
	s := newSetup(t)
	h := NewCompleteTaskHandler(s.engine)
	ctx := context.Background()

	_, err := NewStartLearningPathHandler(s.engine).Handle(ctx, StartLearningPathCommand{UserID: "u1", PathID: "memory_palace_basics"})
	require.NoError(t, err)

	res, err := h.Handle(ctx, CompleteTaskCommand{UserID: "u1", PathID: "memory_palace_basics", Task: "Make your first room"})
	require.NoError(t, err)
	require.NotNil(t, res.Stage)
	assert.InDelta(t, 10.0, res.Stage.Progress, 0.001)
	assert.False(t, res.Stage.StageComplete)

	t.Run("repeated task is an error", func(t *testing.T) {
		_, err := h.Handle(ctx, CompleteTaskCommand{UserID: "u1", PathID: "memory_palace_basics", Task: "Make your first room"})
		assert.ErrorIs(t, err, shared.ErrTaskAlreadyCompleted)
	})

	t.Run("unknown path", func(t *testing.T) {
		_, err := h.Handle(ctx, CompleteTaskCommand{UserID: "u1", PathID: "juggling", Task: "x"})
		assert.ErrorIs(t, err, shared.ErrPathNotFound)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := h.Handle(ctx, CompleteTaskCommand{UserID: "u1"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestSetPersonalityHandler(t *testing.T) {
	s := newSetup(t)
	h := NewSetPersonalityHandler(s.engine)
	ctx := context.Background()

	res, err := h.Handle(ctx, SetPersonalityCommand{UserID: "u1", Personality: " Wizard "})
	require.NoError(t, err)
	assert.Equal(t, "wizard", res.Personality.Key)

	p, err := s.profiles.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "wizard", p.Personality)

	_, err = h.Handle(ctx, SetPersonalityCommand{UserID: "u1", Personality: "pirate"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrPersonalityNotFound)
	assert.Contains(t, shared.OptionsOf(err), "sage")
}
