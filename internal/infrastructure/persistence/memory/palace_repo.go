package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

type userPalace struct {
	rooms     []*palace.Room
	byName    map[string]*palace.Room
	locations []*palace.Location
}

// PalaceRepository keeps rooms and locations in memory, partitioned by user.
type PalaceRepository struct {
	mu    sync.RWMutex
	users map[string]*userPalace
}

// NewPalaceRepository creates an empty PalaceRepository.
func NewPalaceRepository() *PalaceRepository {
	return &PalaceRepository{users: make(map[string]*userPalace)}
}

func (r *PalaceRepository) user(userID string) *userPalace {
	up, ok := r.users[userID]
	if !ok {
		up = &userPalace{byName: make(map[string]*palace.Room)}
		r.users[userID] = up
	}
	return up
}

// CreateRoom implements palace.Repository.
func (r *PalaceRepository) CreateRoom(_ context.Context, room *palace.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	up := r.user(room.UserID)
	if _, exists := up.byName[room.Name]; exists {
		return shared.ErrRoomExists
	}
	cp := copyRoom(room)
	up.rooms = append(up.rooms, cp)
	up.byName[cp.Name] = cp
	return nil
}

// GetRoom implements palace.Repository.
func (r *PalaceRepository) GetRoom(_ context.Context, userID, name string) (*palace.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	up, ok := r.users[userID]
	if !ok {
		return nil, shared.ErrRoomNotFound
	}
	room, ok := up.byName[name]
	if !ok {
		return nil, shared.ErrRoomNotFound
	}
	return copyRoom(room), nil
}

// ListRooms implements palace.Repository.
func (r *PalaceRepository) ListRooms(_ context.Context, userID string) ([]*palace.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	up, ok := r.users[userID]
	if !ok {
		return []*palace.Room{}, nil
	}
	out := make([]*palace.Room, 0, len(up.rooms))
	for _, room := range up.rooms {
		out = append(out, copyRoom(room))
	}
	return out, nil
}

// AddLocation implements palace.Repository.
func (r *PalaceRepository) AddLocation(_ context.Context, loc *palace.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	up := r.user(loc.UserID)
	if _, ok := up.byName[loc.Room]; !ok {
		return shared.ErrRoomNotFound
	}
	up.locations = append(up.locations, copyLocation(loc))
	return nil
}

// ListLocations implements palace.Repository.
func (r *PalaceRepository) ListLocations(_ context.Context, userID, room string) ([]*palace.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	up, ok := r.users[userID]
	if !ok {
		return []*palace.Location{}, nil
	}
	out := make([]*palace.Location, 0, len(up.locations))
	for _, loc := range up.locations {
		if room != "" && loc.Room != room {
			continue
		}
		out = append(out, copyLocation(loc))
	}
	return out, nil
}

// TouchLocations implements palace.Repository.
func (r *PalaceRepository) TouchLocations(_ context.Context, userID string, ids []string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	up, ok := r.users[userID]
	if !ok {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, loc := range up.locations {
		if want[loc.ID] {
			loc.LastAccessed = at
		}
	}
	return nil
}

func copyRoom(r *palace.Room) *palace.Room {
	cp := *r
	cp.Connections = append([]string(nil), r.Connections...)
	return &cp
}

func copyLocation(l *palace.Location) *palace.Location {
	cp := *l
	cp.Keywords = append([]string(nil), l.Keywords...)
	return &cp
}
