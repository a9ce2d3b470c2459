package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CHALLENGES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeReader отдаёт активные испытания пользователя.
type ChallengeReader interface {
	ActiveChallenges(ctx context.Context, userID string) ([]progression.ChallengeInstance, error)
}

// GetChallengesQuery содержит параметры запроса.
type GetChallengesQuery struct {
	UserID string
}

// ChallengeTemplateDTO - тип испытания из каталога.
type ChallengeTemplateDTO struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ChallengesDTO - активные испытания и доступные типы.
type ChallengesDTO struct {
	Active      []progression.ChallengeInstance `json:"active_challenges"`
	ActiveCount int                             `json:"active_count"`
	Templates   []ChallengeTemplateDTO          `json:"challenge_types"`
}

// GetChallengesHandler обрабатывает GetChallengesQuery.
type GetChallengesHandler struct {
	challenges ChallengeReader
	catalog    progression.Catalog
}

// NewGetChallengesHandler создаёт новый GetChallengesHandler.
func NewGetChallengesHandler(challenges ChallengeReader, catalog progression.Catalog) *GetChallengesHandler {
	return &GetChallengesHandler{challenges: challenges, catalog: catalog}
}

// Handle выполняет запрос.
func (h *GetChallengesHandler) Handle(ctx context.Context, q GetChallengesQuery) (*ChallengesDTO, error) {
	if err := requireUser(q.UserID); err != nil {
		return nil, err
	}

	active, err := h.challenges.ActiveChallenges(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_challenges: %w", err)
	}
	if active == nil {
		active = make([]progression.ChallengeInstance, 0)
	}

	templates := h.catalog.ChallengeTemplates()
	dto := &ChallengesDTO{
		Active:      active,
		ActiveCount: len(active),
		Templates:   make([]ChallengeTemplateDTO, 0, len(templates)),
	}
	for _, t := range templates {
		dto.Templates = append(dto.Templates, ChallengeTemplateDTO{Key: t.Key, Name: t.Name, Description: t.Description})
	}
	return dto, nil
}
