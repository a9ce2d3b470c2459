// Package palace содержит модель дворца памяти: комнаты и места воспоминаний.
//
// Дворец - коллаборатор движка прогресса: команды сначала меняют дворец,
// затем движок получает снимок (Snapshot) и начисляет прогресс.
package palace

import (
	"strings"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROOM
// ══════════════════════════════════════════════════════════════════════════════

// Room - комната дворца. Имя уникально в пределах пользователя.
type Room struct {
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Connections []string  `json:"connections"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRoom создаёт комнату с проверкой имени.
func NewRoom(userID, name, description string, connections []string, now time.Time) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrEmptyRoomName
	}

	return &Room{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Connections: dedupe(connections, name),
		CreatedAt:   now,
	}, nil
}

// IsConnected возвращает true, если у комнаты есть связи.
func (r *Room) IsConnected() bool {
	return len(r.Connections) > 0
}

// dedupe убирает пустые значения, повторы и ссылку на саму комнату.
func dedupe(values []string, self string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == self || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCATION
// ══════════════════════════════════════════════════════════════════════════════

// Location - воспоминание, размещённое в комнате.
type Location struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Room         string          `json:"room"`
	Position     shared.Position `json:"position"`
	VisualAnchor string          `json:"visual_anchor"`
	Content      string          `json:"content"`
	Keywords     []string        `json:"keywords"`
	CreatedAt    time.Time       `json:"created_at"`
	LastAccessed time.Time       `json:"last_accessed"`
}

// NewLocationParams - параметры для создания воспоминания.
type NewLocationParams struct {
	UserID       string
	Room         string
	Content      string
	VisualAnchor string
	Position     shared.Position
	Keywords     []string
}

// NewLocation создаёт воспоминание. ID выдаёт генератор.
func NewLocation(id string, params NewLocationParams, now time.Time) (*Location, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, shared.ErrEmptyContent
	}

	keywords := make([]string, 0, len(params.Keywords))
	for _, k := range params.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	return &Location{
		ID:           id,
		UserID:       params.UserID,
		Room:         params.Room,
		Position:     params.Position,
		VisualAnchor: strings.TrimSpace(params.VisualAnchor),
		Content:      content,
		Keywords:     keywords,
		CreatedAt:    now,
		LastAccessed: now,
	}, nil
}

// HasVisualAnchor возвращает true, если у воспоминания есть образ.
func (l *Location) HasVisualAnchor() bool {
	return l.VisualAnchor != ""
}

// Relevance - число совпавших полей (содержимое, образ, ключевые слова).
// Поиск регистронезависимый, по подстроке.
func (l *Location) Relevance(query string) int {
	q := strings.ToLower(query)
	score := 0
	if strings.Contains(strings.ToLower(l.Content), q) {
		score++
	}
	if strings.Contains(strings.ToLower(l.VisualAnchor), q) {
		score++
	}
	for _, k := range l.Keywords {
		if strings.Contains(strings.ToLower(k), q) {
			score++
			break
		}
	}
	return score
}

// LocationIDGenerator выдаёт ID нового воспоминания.
type LocationIDGenerator interface {
	LocationID(room, content string, at time.Time) string
}
