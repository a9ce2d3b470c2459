package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Len(t, c.Achievements(), 10)
	assert.Len(t, c.ChallengeTemplates(), 5)
	assert.Len(t, c.LearningPaths(), 3)
	assert.Equal(t, []string{"sage", "explorer", "architect", "coach", "friend", "wizard"}, c.PersonalityKeys())
	assert.Equal(t, []int{1, 3, 7, 14, 30, 90, 180}, c.ReviewIntervals())

	info := c.ServerInfo()
	assert.Equal(t, "Memory Palace MCP Server", info.Name)
	assert.Equal(t, "2.0.0", info.Version)
	assert.Len(t, info.Capabilities, 8)

	assert.Equal(t, "Study Hall", c.Defaults().RoomName)
}

func TestCatalogLookups(t *testing.T) {
	c := MustDefault()

	a, err := c.Achievement(progression.AchievementSevenDayStreak)
	require.NoError(t, err)
	assert.Equal(t, 250, a.XPReward)
	assert.Equal(t, "Memory Star", a.Name)

	tmpl, err := c.ChallengeTemplate(progression.ChallengeQuickRecall)
	require.NoError(t, err)
	lvl, ok := tmpl.Level(shared.DifficultyHard)
	require.True(t, ok)
	assert.Equal(t, 10, lvl.Count)
	assert.Equal(t, 200, lvl.XPReward)
	assert.Equal(t, "Can you remember 3 things from your Kitchen room? Let's play!", tmpl.Describe(3, "Kitchen"))

	mastery, err := c.ChallengeTemplate(progression.ChallengeRoomMastery)
	require.NoError(t, err)
	assert.Equal(t, 150, mastery.XPReward)
	assert.Empty(t, mastery.Difficulties)

	path, err := c.LearningPath("memory_palace_basics")
	require.NoError(t, err)
	require.Len(t, path.Stages, 5)
	assert.Equal(t, "First Steps", path.Stages[0].Name)
	assert.True(t, path.Stages[0].HasTask("Save your first memory"))

	p, err := c.Personality("wizard")
	require.NoError(t, err)
	assert.Equal(t, "Magical! You've practiced your memory spells for 4 days in a row!", p.Message(progression.MessageStreak, 4))
}

func TestCatalogNotFoundCarriesOptions(t *testing.T) {
	c := MustDefault()

	_, err := c.Personality("pirate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrPersonalityNotFound))
	assert.True(t, shared.IsNotFound(err))
	assert.Contains(t, shared.OptionsOf(err), "sage")

	_, err = c.LearningPath("unknown")
	assert.True(t, errors.Is(err, shared.ErrPathNotFound))
	assert.Len(t, shared.OptionsOf(err), 3)

	_, err = c.ChallengeTemplate("nope")
	assert.True(t, errors.Is(err, shared.ErrTemplateNotFound))

	_, err = c.Achievement("nope")
	assert.True(t, errors.Is(err, shared.ErrAchievementNotFound))
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := MustDefault()

	list := c.Achievements()
	list[0].XPReward = 9999

	a, err := c.Achievement(list[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, 9999, a.XPReward)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "key: [unclosed"},
		{name: "empty", doc: ""},
		{name: "missing sections", doc: "server: {name: x, version: '1'}\n"},
		{
			name: "too many stages",
			doc: validHead + `
learning_paths:
  - id: long
    name: Long
    stages:
      - {name: a, tasks: [x], xp_reward: 1}
      - {name: b, tasks: [x], xp_reward: 1}
      - {name: c, tasks: [x], xp_reward: 1}
      - {name: d, tasks: [x], xp_reward: 1}
      - {name: e, tasks: [x], xp_reward: 1}
      - {name: f, tasks: [x], xp_reward: 1}
`,
		},
		{
			name: "duplicate task in stage",
			doc: validHead + `
learning_paths:
  - id: twice
    name: Twice
    stages:
      - {name: a, tasks: [link rooms, link rooms], xp_reward: 1}
`,
		},
		{
			name: "duplicate achievement",
			doc: `
server: {name: s, version: "1"}
review_intervals: [1]
personalities:
  - {key: sage, name: Sage, messages: {welcome: a, achievement: b, challenge: c, tip: d, streak: e}}
achievements:
  - {id: first_room, name: A, xp_reward: 1}
  - {id: first_room, name: B, xp_reward: 2}
challenges:
  - {key: room_mastery, name: R, description: d, xp_reward: 1}
learning_paths:
  - {id: p, name: P, stages: [{name: s, tasks: [t], xp_reward: 1}]}
`,
		},
		{
			name: "challenge with both reward kinds",
			doc: `
server: {name: s, version: "1"}
review_intervals: [1]
personalities:
  - {key: sage, name: Sage, messages: {welcome: a, achievement: b, challenge: c, tip: d, streak: e}}
achievements:
  - {id: first_room, name: A, xp_reward: 1}
challenges:
  - key: quick_recall
    name: Q
    description: d
    xp_reward: 5
    difficulty:
      easy: {count: 1, xp_reward: 1}
      medium: {count: 2, xp_reward: 2}
      hard: {count: 3, xp_reward: 3}
learning_paths:
  - {id: p, name: P, stages: [{name: s, tasks: [t], xp_reward: 1}]}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrCatalogInvalid), "got %v", err)
		})
	}
}

const validHead = `
server: {name: s, version: "1"}
review_intervals: [1, 2]
personalities:
  - {key: sage, name: Sage, messages: {welcome: a, achievement: b, challenge: c, tip: d, streak: e}}
achievements:
  - {id: first_room, name: A, xp_reward: 1}
challenges:
  - {key: room_mastery, name: R, description: d, xp_reward: 1}
`

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := validHead + `
learning_paths:
  - {id: p, name: P, stages: [{name: s, tasks: [t], xp_reward: 7}]}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.LearningPaths(), 1)
	assert.Equal(t, []int{1, 2}, c.ReviewIntervals())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, shared.ErrCatalogInvalid))
}
