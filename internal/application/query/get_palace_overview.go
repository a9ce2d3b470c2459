package query

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PALACE OVERVIEW QUERY
// ══════════════════════════════════════════════════════════════════════════════

// PalaceReader - операции чтения дворца.
type PalaceReader interface {
	Overview(ctx context.Context, userID string) (*palace.Overview, error)
	ReviewSchedule(ctx context.Context, userID, roomName string, now time.Time) ([]palace.ReviewItem, error)
}

// GetPalaceOverviewQuery содержит параметры запроса обзора дворца.
type GetPalaceOverviewQuery struct {
	UserID string
}

// PalaceOverviewDTO - обзор дворца с подсказками для пустого дворца.
type PalaceOverviewDTO struct {
	*palace.Overview
	Suggestions []string `json:"suggestions,omitempty"`
}

// GetPalaceOverviewHandler обрабатывает GetPalaceOverviewQuery.
type GetPalaceOverviewHandler struct {
	palace      PalaceReader
	suggestions []string
}

// NewGetPalaceOverviewHandler создаёт новый GetPalaceOverviewHandler.
// suggestions показываются, пока во дворце нет комнат.
func NewGetPalaceOverviewHandler(reader PalaceReader, suggestions []string) *GetPalaceOverviewHandler {
	return &GetPalaceOverviewHandler{palace: reader, suggestions: suggestions}
}

// Handle выполняет запрос.
func (h *GetPalaceOverviewHandler) Handle(ctx context.Context, q GetPalaceOverviewQuery) (*PalaceOverviewDTO, error) {
	if err := requireUser(q.UserID); err != nil {
		return nil, err
	}

	ov, err := h.palace.Overview(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_palace_overview: %w", err)
	}

	dto := &PalaceOverviewDTO{Overview: ov}
	if ov.TotalRooms == 0 {
		dto.Suggestions = append([]string(nil), h.suggestions...)
	}
	return dto, nil
}
