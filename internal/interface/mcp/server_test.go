package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/application/command"
	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/application/query"
	"github.com/alem-hub/memory-palace/internal/domain/palace"
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

// connect builds the full tool server on in-memory storage and returns a client session.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()

	cat := catalog.MustDefault()
	log := logger.NewNop()
	clock := engine.ClockFunc(func() time.Time { return testNow })
	svc := palace.NewService(memory.NewPalaceRepository(), identity.NewLocationIDs(), cat.ReviewIntervals())

	cfg := engine.DefaultConfig()
	cfg.ChallengesEnabled = false
	eng := engine.New(engine.Deps{
		Profiles: memory.NewProfileStore(),
		Palace:   svc,
		Catalog:  cat,
		Locker:   memory.NewKeyedLocker(),
		Rand:     fixedRand{},
		IDs:      identity.ChallengeIDs{},
		Clock:    clock,
		Logger:   log,
	}, cfg)

	info := cat.ServerInfo()
	server := NewServer(Config{Name: info.Name, Version: info.Version, DefaultUser: "tester"},
		Commands{
			CreateRoom:        command.NewCreateRoomHandler(svc, eng, clock, log),
			StoreMemory:       command.NewStoreMemoryHandler(svc, eng, clock, log),
			TakeJourney:       command.NewTakeJourneyHandler(svc, eng, clock, log),
			SearchMemories:    command.NewSearchMemoriesHandler(svc, eng, clock, log),
			SetPersonality:    command.NewSetPersonalityHandler(eng),
			StartLearningPath: command.NewStartLearningPathHandler(eng),
			CompleteTask:      command.NewCompleteTaskHandler(eng),
		},
		Queries{
			PalaceOverview: query.NewGetPalaceOverviewHandler(svc, cat.Defaults().Suggestions),
			ReviewSchedule: query.NewGetReviewScheduleHandler(svc, clock.Now),
			ServerInfo: query.NewGetServerInfoHandler(query.ServerMeta{
				Name:         info.Name,
				Version:      info.Version,
				Description:  info.Description,
				Capabilities: info.Capabilities,
			}, "memory", cat),
			Progress:         query.NewGetProgressHandler(eng, cat),
			LearningPaths:    query.NewListLearningPathsHandler(eng, cat),
			ListAchievements: query.NewListAchievementsHandler(eng, cat, eng.AchievementRules()),
			Challenges:       query.NewGetChallengesHandler(eng, cat),
		},
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Run(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return session
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])

	var out T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

type progressView struct {
	XPGained     int `json:"xp_gained"`
	Achievements []struct {
		ID string `json:"id"`
	} `json:"achievements_unlocked"`
}

type actionView struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	Progress      *progressView `json:"progress"`
	ProgressError string        `json:"progress_error"`
}

func TestServer_ListsAllTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"create_room", "store_memory", "memory_journey", "search_memories",
		"get_palace_overview", "review_schedule", "get_server_info", "get_progress",
		"set_personality", "list_learning_paths", "start_learning_path", "complete_task",
		"list_achievements", "get_challenges",
	}, names)
}

func TestServer_PalaceFlow(t *testing.T) {
	session := connect(t)

	overview := decode[map[string]any](t, call(t, session, "get_palace_overview", nil))
	assert.NotEmpty(t, overview["suggestions"], "empty palace gets suggestions")

	res := call(t, session, "create_room", map[string]any{"name": "Kitchen", "description": "warm"})
	require.False(t, res.IsError)
	created := decode[actionView](t, res)
	assert.True(t, created.Success)
	require.NotNil(t, created.Progress)
	assert.Equal(t, 25, created.Progress.XPGained)

	res = call(t, session, "store_memory", map[string]any{
		"room": "Kitchen", "content": "salt is NaCl", "visual_anchor": "a glowing salt shaker",
		"x": 1, "y": 2, "keywords": []string{"chemistry"},
	})
	require.False(t, res.IsError)
	stored := decode[actionView](t, res)
	assert.Equal(t, "Memory stored in 'Kitchen' at position (1, 2, 0)", stored.Message)
	require.NotNil(t, stored.Progress)
	ids := make([]string, 0)
	for _, a := range stored.Progress.Achievements {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"first_room", "first_memory"}, ids)

	search := decode[map[string]any](t, call(t, session, "search_memories", map[string]any{"query": "chemistry"}))
	assert.EqualValues(t, 1, search["results_count"])

	journey := call(t, session, "memory_journey", map[string]any{"room": "Kitchen"})
	assert.False(t, journey.IsError)

	schedule := decode[map[string]any](t, call(t, session, "review_schedule", map[string]any{"due_only": true}))
	assert.EqualValues(t, 1, schedule["total_memories"])

	progress := decode[map[string]any](t, call(t, session, "get_progress", nil))
	assert.Equal(t, "tester", progress["user_id"])
}

func TestServer_UserIDIsolatesPalaces(t *testing.T) {
	session := connect(t)

	require.False(t, call(t, session, "create_room", map[string]any{"name": "Kitchen", "user_id": "alice"}).IsError)
	res := call(t, session, "create_room", map[string]any{"name": "Kitchen", "user_id": "bob"})
	assert.False(t, res.IsError)

	res = call(t, session, "create_room", map[string]any{"name": "Kitchen", "user_id": "alice"})
	assert.True(t, res.IsError)
}

func TestServer_ToolErrors(t *testing.T) {
	session := connect(t)

	res := call(t, session, "store_memory", map[string]any{"room": "Attic", "content": "x", "visual_anchor": "y"})
	assert.True(t, res.IsError)

	res = call(t, session, "set_personality", map[string]any{"personality": "pirate"})
	require.True(t, res.IsError)
	payload := decodeStructured[ErrorPayload](t, res)
	assert.Contains(t, payload.Options, "sage")

	res = call(t, session, "complete_task", map[string]any{"path_id": "nope", "task": "x"})
	assert.True(t, res.IsError)
}

func TestServer_LearningPathFlow(t *testing.T) {
	session := connect(t)

	paths := decode[map[string]any](t, call(t, session, "list_learning_paths", nil))
	list, ok := paths["learning_paths"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, list)
	first := list[0].(map[string]any)
	pathID := first["id"].(string)
	tasks := first["remaining_tasks"].([]any)
	require.NotEmpty(t, tasks)

	res := call(t, session, "start_learning_path", map[string]any{"path_id": pathID})
	require.False(t, res.IsError)

	res = call(t, session, "complete_task", map[string]any{"path_id": pathID, "task": tasks[0]})
	require.False(t, res.IsError)

	res = call(t, session, "complete_task", map[string]any{"path_id": pathID, "task": tasks[0]})
	assert.True(t, res.IsError, "completing a task twice is rejected")
}

func TestServer_InfoAndCatalogTools(t *testing.T) {
	session := connect(t)

	info := decode[map[string]any](t, call(t, session, "get_server_info", nil))
	assert.Equal(t, "memory", info["storage"])
	assert.Len(t, info["personalities"], 6)

	achievements := decode[map[string]any](t, call(t, session, "list_achievements", nil))
	assert.EqualValues(t, 10, achievements["total_count"])

	challenges := decode[map[string]any](t, call(t, session, "get_challenges", nil))
	assert.Empty(t, challenges["active_challenges"])
	assert.Len(t, challenges["challenge_types"], 5)
}

func decodeStructured[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}
