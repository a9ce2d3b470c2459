package palace

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository хранит комнаты и воспоминания, разделённые по пользователю.
type Repository interface {
	// CreateRoom создаёт комнату. Возвращает shared.ErrRoomExists при повторе имени.
	CreateRoom(ctx context.Context, room *Room) error

	// GetRoom возвращает комнату. Возвращает shared.ErrRoomNotFound.
	GetRoom(ctx context.Context, userID, name string) (*Room, error)

	// ListRooms возвращает комнаты в порядке создания.
	ListRooms(ctx context.Context, userID string) ([]*Room, error)

	// AddLocation сохраняет воспоминание в существующей комнате.
	AddLocation(ctx context.Context, loc *Location) error

	// ListLocations возвращает воспоминания; пустое room - все комнаты.
	ListLocations(ctx context.Context, userID, room string) ([]*Location, error)

	// TouchLocations обновляет LastAccessed у перечисленных воспоминаний.
	TouchLocations(ctx context.Context, userID string, ids []string, at time.Time) error
}
