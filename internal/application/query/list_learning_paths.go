package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST LEARNING PATHS QUERY
// Пути обучения каталога с прогрессом пользователя и оставшимися заданиями.
// ══════════════════════════════════════════════════════════════════════════════

// ListLearningPathsQuery содержит параметры запроса.
type ListLearningPathsQuery struct {
	UserID string
}

// LearningPathDTO - путь обучения в списке.
type LearningPathDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	StageCount     int      `json:"stage_count"`
	Started        bool     `json:"started"`
	Completed      bool     `json:"completed"`
	Progress       float64  `json:"progress"`
	CurrentStage   string   `json:"current_stage"`
	StageIndex     int      `json:"stage_index"`
	RemainingTasks []string `json:"remaining_tasks"`
	StageXPReward  int      `json:"stage_xp_reward"`
}

// LearningPathsDTO - список путей обучения.
type LearningPathsDTO struct {
	Paths []LearningPathDTO `json:"learning_paths"`
}

// ListLearningPathsHandler обрабатывает ListLearningPathsQuery.
type ListLearningPathsHandler struct {
	profiles ProfileReader
	catalog  progression.Catalog
}

// NewListLearningPathsHandler создаёт новый ListLearningPathsHandler.
func NewListLearningPathsHandler(profiles ProfileReader, catalog progression.Catalog) *ListLearningPathsHandler {
	return &ListLearningPathsHandler{profiles: profiles, catalog: catalog}
}

// Handle выполняет запрос.
func (h *ListLearningPathsHandler) Handle(ctx context.Context, q ListLearningPathsQuery) (*LearningPathsDTO, error) {
	if err := requireUser(q.UserID); err != nil {
		return nil, err
	}

	p, err := h.profiles.Profile(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list_learning_paths: %w", err)
	}

	paths := h.catalog.LearningPaths()
	out := &LearningPathsDTO{Paths: make([]LearningPathDTO, 0, len(paths))}
	for _, path := range paths {
		progress, started := p.LearningPaths[path.ID]
		idx := path.StageIndex(progress)
		stage := path.Stages[idx]

		dto := LearningPathDTO{
			ID:            path.ID,
			Name:          path.Name,
			Description:   path.Description,
			StageCount:    len(path.Stages),
			Started:       started,
			Completed:     progress >= 100,
			Progress:      progress,
			CurrentStage:  stage.Name,
			StageIndex:    idx,
			StageXPReward: stage.XPReward,
		}
		if !dto.Completed {
			dto.RemainingTasks = pending(stage.Tasks, p.CompletedTasks[path.ID])
		} else {
			dto.RemainingTasks = []string{}
		}
		out.Paths = append(out.Paths, dto)
	}
	return out, nil
}

func pending(tasks, done []string) []string {
	seen := make(map[string]bool, len(done))
	for _, d := range done {
		seen[d] = true
	}
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if !seen[t] {
			out = append(out, t)
		}
	}
	return out
}
