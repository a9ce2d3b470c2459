package query

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST ACHIEVEMENTS QUERY
// Все достижения каталога с отметкой о получении.
// ══════════════════════════════════════════════════════════════════════════════

// ListAchievementsQuery содержит параметры запроса.
type ListAchievementsQuery struct {
	UserID string
}

// AchievementDTO - достижение в списке.
type AchievementDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	XPReward    int        `json:"xp_reward"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`

	// Available - false, если у достижения нет правила и получить его нельзя.
	Available bool `json:"available"`
}

// AchievementListDTO - список достижений.
type AchievementListDTO struct {
	Achievements  []AchievementDTO `json:"achievements"`
	UnlockedCount int              `json:"unlocked_count"`
	TotalCount    int              `json:"total_count"`
}

// ListAchievementsHandler обрабатывает ListAchievementsQuery.
type ListAchievementsHandler struct {
	profiles ProfileReader
	catalog  progression.Catalog
	rules    map[string]bool
}

// NewListAchievementsHandler создаёт новый ListAchievementsHandler.
// ruleIDs - достижения, которые движок умеет выдавать.
func NewListAchievementsHandler(profiles ProfileReader, catalog progression.Catalog, ruleIDs []string) *ListAchievementsHandler {
	rules := make(map[string]bool, len(ruleIDs))
	for _, id := range ruleIDs {
		rules[id] = true
	}
	return &ListAchievementsHandler{profiles: profiles, catalog: catalog, rules: rules}
}

// Handle выполняет запрос.
func (h *ListAchievementsHandler) Handle(ctx context.Context, q ListAchievementsQuery) (*AchievementListDTO, error) {
	if err := requireUser(q.UserID); err != nil {
		return nil, err
	}

	p, err := h.profiles.Profile(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list_achievements: %w", err)
	}

	records := make(map[string]progression.AchievementRecord, len(p.Achievements))
	for _, r := range p.Achievements {
		if r.Unlocked {
			records[r.ID] = r
		}
	}

	defs := h.catalog.Achievements()
	out := &AchievementListDTO{
		Achievements: make([]AchievementDTO, 0, len(defs)),
		TotalCount:   len(defs),
	}
	for _, d := range defs {
		dto := AchievementDTO{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Icon:        d.Icon,
			XPReward:    d.XPReward,
			Available:   h.rules[d.ID],
		}
		if r, ok := records[d.ID]; ok {
			at := r.UnlockedAt
			dto.Unlocked = true
			dto.UnlockedAt = &at
			out.UnlockedCount++
		}
		out.Achievements = append(out.Achievements, dto)
	}
	return out, nil
}
