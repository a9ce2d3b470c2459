package query

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET REVIEW SCHEDULE QUERY
// Расписание интервальных повторений. Только расчёт: напоминаний нет.
// ══════════════════════════════════════════════════════════════════════════════

// GetReviewScheduleQuery содержит параметры запроса. Пустой Room - весь дворец.
type GetReviewScheduleQuery struct {
	UserID  string
	Room    string
	DueOnly bool
}

// ReviewScheduleDTO - расписание повторений.
type ReviewScheduleDTO struct {
	Room          string              `json:"room,omitempty"`
	TotalMemories int                 `json:"total_memories"`
	DueCount      int                 `json:"due_count"`
	MasteredCount int                 `json:"mastered_count"`
	Items         []palace.ReviewItem `json:"items"`

	// NextReview - ближайшая будущая точка повторения, например "in 3 days".
	NextReview  string    `json:"next_review,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// GetReviewScheduleHandler обрабатывает GetReviewScheduleQuery.
type GetReviewScheduleHandler struct {
	palace PalaceReader
	now    func() time.Time
}

// NewGetReviewScheduleHandler создаёт новый GetReviewScheduleHandler.
func NewGetReviewScheduleHandler(reader PalaceReader, now func() time.Time) *GetReviewScheduleHandler {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &GetReviewScheduleHandler{palace: reader, now: now}
}

// Handle выполняет запрос.
func (h *GetReviewScheduleHandler) Handle(ctx context.Context, q GetReviewScheduleQuery) (*ReviewScheduleDTO, error) {
	if err := requireUser(q.UserID); err != nil {
		return nil, err
	}

	now := h.now()
	items, err := h.palace.ReviewSchedule(ctx, q.UserID, q.Room, now)
	if err != nil {
		return nil, fmt.Errorf("review_schedule: %w", err)
	}

	dto := &ReviewScheduleDTO{
		Room:          q.Room,
		TotalMemories: len(items),
		Items:         make([]palace.ReviewItem, 0, len(items)),
		GeneratedAt:   now,
	}
	var next *time.Time
	for _, it := range items {
		if it.NextReview != nil && (next == nil || it.NextReview.Before(*next)) {
			next = it.NextReview
		}
		if it.Due {
			dto.DueCount++
		}
		if it.Mastered {
			dto.MasteredCount++
		}
		if q.DueOnly && !it.Due {
			continue
		}
		dto.Items = append(dto.Items, it)
	}
	if next != nil {
		dto.NextReview = timeutil.FormatRelative(*next, now)
	}
	return dto, nil
}
