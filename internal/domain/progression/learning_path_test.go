package progression_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/internal/infrastructure/catalog"
)

const basics = "memory_palace_basics"

func newTracker() *progression.LearningPathTracker {
	return progression.NewLearningPathTracker(catalog.MustDefault(), progression.NewLevelingPolicy())
}

func TestLearningPathTracker_Start(t *testing.T) {
	lt := newTracker()
	p := newProfile()

	path, started, err := lt.Start(p, basics)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, "Memory Palace Adventure", path.Name)
	assert.Equal(t, 0.0, p.LearningPaths[basics])

	p.LearningPaths[basics] = 40
	_, started, err = lt.Start(p, basics)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 40.0, p.LearningPaths[basics], "restarting keeps progress")

	_, _, err = lt.Start(p, "juggling")
	assert.True(t, shared.IsNotFound(err))
}

func TestLearningPathTracker_AdvanceTask(t *testing.T) {
	lt := newTracker()
	p := newProfile()

	res, err := lt.AdvanceTask(p, basics, "Make your first room")
	require.NoError(t, err)
	assert.False(t, res.StageComplete)
	assert.InDelta(t, 10.0, res.Progress, 1e-9)
	assert.Equal(t, []string{"Make your first room"}, p.CompletedTasks[basics])

	_, err = lt.AdvanceTask(p, basics, "Make your first room")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrTaskAlreadyCompleted))
	assert.Equal(t, []string{"Save your first memory"}, shared.OptionsOf(err))

	res, err = lt.AdvanceTask(p, basics, "Save your first memory")
	require.NoError(t, err)
	assert.True(t, res.StageComplete)
	assert.Equal(t, "First Steps", res.CompletedStage)
	assert.Equal(t, 50, res.XPEarned)
	require.NotNil(t, res.NextStage)
	assert.Equal(t, "Memory Pictures", res.NextStage.Name)
	assert.False(t, res.PathComplete)
	assert.InDelta(t, 20.0, p.LearningPaths[basics], 1e-9)
	assert.NotContains(t, p.CompletedTasks, basics)
	assert.Equal(t, 50, p.TotalXPEarned)

	stage, idx, err := lt.CurrentStage(p, basics)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Memory Pictures", stage.Name)
}

func TestLearningPathTracker_TaskOutsideStage(t *testing.T) {
	lt := newTracker()
	p := newProfile()
	before := p.Clone()

	_, err := lt.AdvanceTask(p, basics, "Save 10 memories")
	require.Error(t, err)
	assert.True(t, shared.IsInvalidTask(err))
	assert.Equal(t, []string{"Make your first room", "Save your first memory"}, shared.OptionsOf(err))
	assert.Equal(t, before, p)
}

func TestLearningPathTracker_CompletePath(t *testing.T) {
	cat := catalog.MustDefault()
	lt := newTracker()
	p := newProfile()

	path, err := cat.LearningPath(basics)
	require.NoError(t, err)

	var last progression.StageResult
	total := 0
	for _, stage := range path.Stages {
		for _, task := range stage.Tasks {
			last, err = lt.AdvanceTask(p, basics, task)
			require.NoError(t, err, "task %q", task)
		}
		total += stage.XPReward
	}

	assert.True(t, last.PathComplete)
	assert.Nil(t, last.NextStage)
	assert.Equal(t, 100.0, p.LearningPaths[basics])
	assert.Equal(t, total, p.TotalXPEarned)

	_, err = lt.AdvanceTask(p, basics, path.Stages[4].Tasks[0])
	assert.True(t, errors.Is(err, shared.ErrPathAlreadyComplete))
}

func TestLearningPathTracker_UnknownPath(t *testing.T) {
	_, err := newTracker().AdvanceTask(newProfile(), "juggling", "x")
	assert.True(t, shared.IsNotFound(err))
}

func TestLearningPathTemplate_StageIndex(t *testing.T) {
	path := progression.LearningPathTemplate{Stages: make([]progression.Stage, 5)}

	assert.Equal(t, 0, path.StageIndex(0))
	assert.Equal(t, 0, path.StageIndex(19.9))
	assert.Equal(t, 1, path.StageIndex(20))
	assert.Equal(t, 4, path.StageIndex(100))
	assert.Equal(t, 0, path.StageIndex(-5))
}
