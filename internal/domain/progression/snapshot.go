package progression

// ══════════════════════════════════════════════════════════════════════════════
// PALACE SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// MemorySnapshot - воспоминание глазами движка прогресса.
type MemorySnapshot struct {
	ID              string
	HasVisualAnchor bool
}

// RoomSnapshot - комната и её воспоминания в порядке позиций (x, y, z).
type RoomSnapshot struct {
	Name     string
	Memories []MemorySnapshot
}

// PalaceSnapshot - состояние дворца пользователя после действия.
type PalaceSnapshot struct {
	RoomCount      int
	MemoryCount    int
	ConnectedRooms int
	Rooms          []RoomSnapshot
}

// ValidRooms возвращает комнаты хотя бы с одним воспоминанием.
func (s PalaceSnapshot) ValidRooms() []RoomSnapshot {
	valid := make([]RoomSnapshot, 0, len(s.Rooms))
	for _, r := range s.Rooms {
		if len(r.Memories) > 0 {
			valid = append(valid, r)
		}
	}
	return valid
}
