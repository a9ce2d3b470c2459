package progression

import (
	"fmt"

	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING PATH TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// progressEpsilon поглощает ошибку округления дробных приращений (20/3).
const progressEpsilon = 1e-9

// StageResult - итог выполнения задания пути.
type StageResult struct {
	PathID         string      `json:"path_id"`
	Task           string      `json:"task"`
	Progress       float64     `json:"progress"`
	StageComplete  bool        `json:"stage_complete"`
	CompletedStage string      `json:"completed_stage,omitempty"`
	NextStage      *Stage      `json:"next_stage,omitempty"`
	PathComplete   bool        `json:"path_complete"`
	XPEarned       int         `json:"xp_earned"`
	Level          LevelResult `json:"level"`
}

// LearningPathTracker ведёт прогресс по многоэтапным путям.
type LearningPathTracker struct {
	catalog  Catalog
	leveling *LevelingPolicy
}

// NewLearningPathTracker создаёт трекер путей обучения.
func NewLearningPathTracker(catalog Catalog, leveling *LevelingPolicy) *LearningPathTracker {
	return &LearningPathTracker{catalog: catalog, leveling: leveling}
}

// Start записывает прогресс 0, если путь ещё не начат. Повторный старт - no-op.
func (lt *LearningPathTracker) Start(p *UserProfile, pathID string) (LearningPathTemplate, bool, error) {
	path, err := lt.catalog.LearningPath(pathID)
	if err != nil {
		return LearningPathTemplate{}, false, err
	}
	if _, ok := p.LearningPaths[pathID]; ok {
		return path, false, nil
	}
	p.LearningPaths[pathID] = 0
	return path, true, nil
}

// CurrentStage возвращает текущий этап пути для профиля.
func (lt *LearningPathTracker) CurrentStage(p *UserProfile, pathID string) (Stage, int, error) {
	path, err := lt.catalog.LearningPath(pathID)
	if err != nil {
		return Stage{}, 0, err
	}
	idx := path.StageIndex(p.LearningPaths[pathID])
	return path.Stages[idx], idx, nil
}

// AdvanceTask засчитывает выполненное задание текущего этапа.
//
// Задание не из текущего этапа - ErrTaskNotInStage со списком допустимых заданий;
// повтор уже засчитанного задания - ErrTaskAlreadyCompleted. В обоих случаях
// профиль не меняется. Не начатый путь стартует автоматически.
func (lt *LearningPathTracker) AdvanceTask(p *UserProfile, pathID, label string) (StageResult, error) {
	path, err := lt.catalog.LearningPath(pathID)
	if err != nil {
		return StageResult{}, err
	}
	if len(path.Stages) == 0 {
		return StageResult{}, shared.ErrPathNotFound.WithOptions(pathID)
	}

	progress := p.LearningPaths[pathID]
	if progress >= 100-progressEpsilon {
		return StageResult{}, shared.ErrPathAlreadyComplete
	}

	idx := path.StageIndex(progress)
	stage := path.Stages[idx]

	if !stage.HasTask(label) {
		return StageResult{}, shared.ErrTaskNotInStage.WithOptions(stage.Tasks...)
	}

	done := p.CompletedTasks[pathID]
	for _, t := range done {
		if t == label {
			return StageResult{}, shared.ErrTaskAlreadyCompleted.WithOptions(remaining(stage.Tasks, done)...)
		}
	}
	done = append(done, label)

	threshold := float64(idx+1) * stageSpan
	progress += stageSpan / float64(len(stage.Tasks))

	result := StageResult{PathID: pathID, Task: label}

	if len(done) >= len(stage.Tasks) || progress >= threshold-progressEpsilon {
		progress = threshold
		done = nil

		lvl, err := lt.leveling.AddXP(p, stage.XPReward)
		if err != nil {
			return StageResult{}, fmt.Errorf("stage %s reward: %w", stage.Name, err)
		}

		result.StageComplete = true
		result.CompletedStage = stage.Name
		result.XPEarned = stage.XPReward
		result.Level = lvl

		if idx+1 < len(path.Stages) {
			next := path.Stages[idx+1]
			result.NextStage = &next
		} else {
			result.PathComplete = true
			progress = 100
		}
	}

	if progress > 100 {
		progress = 100
	}
	p.LearningPaths[pathID] = progress
	if done == nil {
		delete(p.CompletedTasks, pathID)
	} else {
		p.CompletedTasks[pathID] = done
	}

	result.Progress = progress
	return result, nil
}

func remaining(tasks, done []string) []string {
	seen := make(map[string]bool, len(done))
	for _, d := range done {
		seen[d] = true
	}
	var left []string
	for _, t := range tasks {
		if !seen[t] {
			left = append(left, t)
		}
	}
	return left
}
