// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Карточка прогресса пользователя: уровень, серия, достижения, пути.
// Профиль создаётся при первом обращении, как и в движке.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileReader отдаёт профиль пользователя.
type ProfileReader interface {
	Profile(ctx context.Context, userID string) (*progression.UserProfile, error)
}

// GetProgressQuery содержит параметры запроса карточки прогресса.
type GetProgressQuery struct {
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q GetProgressQuery) Validate() error {
	return requireUser(q.UserID)
}

// PersonalityDTO - текущий помощник пользователя.
type PersonalityDTO struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// PathProgressDTO - прогресс по одному пути.
type PathProgressDTO struct {
	PathID       string  `json:"path_id"`
	Name         string  `json:"name"`
	Progress     float64 `json:"progress"`
	CurrentStage string  `json:"current_stage"`
}

// StatsDTO - счётчики активности.
type StatsDTO struct {
	TotalRooms          int `json:"total_rooms"`
	TotalMemories       int `json:"total_memories"`
	JourneysTaken       int `json:"journeys_taken"`
	SearchesWithResults int `json:"searches_with_results"`
	ChallengesCompleted int `json:"challenges_completed"`
	ActiveChallenges    int `json:"active_challenges"`
}

// ProgressCardDTO - карточка прогресса.
type ProgressCardDTO struct {
	UserID      string                  `json:"user_id"`
	DisplayName string                  `json:"display_name"`
	Progress    engine.ProgressSnapshot `json:"progress"`
	Personality PersonalityDTO          `json:"personality"`

	// ProgressPercent - доля пути до следующего уровня (0-100).
	ProgressPercent float64 `json:"progress_percent"`

	Achievements  []engine.AchievementView `json:"achievements"`
	LearningPaths []PathProgressDTO        `json:"learning_paths"`
	Stats         StatsDTO                 `json:"stats"`

	LastActive  time.Time `json:"last_active"`
	MemberSince time.Time `json:"member_since"`
}

// GetProgressHandler обрабатывает GetProgressQuery.
type GetProgressHandler struct {
	profiles ProfileReader
	catalog  progression.Catalog
}

// NewGetProgressHandler создаёт новый GetProgressHandler.
func NewGetProgressHandler(profiles ProfileReader, catalog progression.Catalog) *GetProgressHandler {
	return &GetProgressHandler{profiles: profiles, catalog: catalog}
}

// Handle выполняет запрос.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressCardDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.profiles.Profile(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	card := &ProgressCardDTO{
		UserID:        p.ID,
		DisplayName:   p.DisplayName,
		Progress:      engine.SnapshotOf(p),
		Achievements:  make([]engine.AchievementView, 0, len(p.Achievements)),
		LearningPaths: make([]PathProgressDTO, 0, len(p.LearningPaths)),
		Stats: StatsDTO{
			TotalRooms:          p.TotalRooms,
			TotalMemories:       p.TotalMemories,
			JourneysTaken:       p.JourneysTaken,
			SearchesWithResults: p.SearchesWithResults,
			ChallengesCompleted: p.ChallengesCompleted,
			ActiveChallenges:    len(p.ActiveChallenges),
		},
		LastActive:  p.LastActive,
		MemberSince: p.CreatedAt,
	}
	if p.XPToNextLevel > 0 {
		card.ProgressPercent = float64(p.XP) * 100 / float64(p.XPToNextLevel)
	}

	// Ключ личности мог исчезнуть из каталога - показываем сам ключ.
	card.Personality = PersonalityDTO{Key: p.Personality, Name: p.Personality}
	if personality, err := h.catalog.Personality(p.Personality); err == nil {
		card.Personality.Name = personality.Name
		card.Personality.Emoji = personality.Emoji
	}

	for _, id := range p.AchievementIDs() {
		def, err := h.catalog.Achievement(id)
		if err != nil {
			continue
		}
		card.Achievements = append(card.Achievements, engine.AchievementView{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			XPReward:    def.XPReward,
		})
	}

	for pathID, progress := range p.LearningPaths {
		path, err := h.catalog.LearningPath(pathID)
		if err != nil {
			continue
		}
		card.LearningPaths = append(card.LearningPaths, PathProgressDTO{
			PathID:       pathID,
			Name:         path.Name,
			Progress:     progress,
			CurrentStage: path.Stages[path.StageIndex(progress)].Name,
		})
	}
	sort.Slice(card.LearningPaths, func(i, j int) bool {
		return card.LearningPaths[i].PathID < card.LearningPaths[j].PathID
	})

	return card, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return shared.WrapError("query", "Validate", shared.ErrInvalidID, "user id is required", errors.New("empty user id"))
	}
	return nil
}
