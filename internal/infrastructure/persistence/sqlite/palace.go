package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// CreateRoom implements palace.Repository.
func (s *Store) CreateRoom(ctx context.Context, room *palace.Room) error {
	conns, err := json.Marshal(nonNil(room.Connections))
	if err != nil {
		return fmt.Errorf("sqlite: encode connections: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rooms (user_id, name, description, connections, created_at) VALUES (?, ?, ?, ?, ?)`,
		room.UserID, room.Name, room.Description, string(conns), toMillis(room.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrRoomExists
		}
		return shared.StorageError("palace", "CreateRoom", err)
	}
	return nil
}

// GetRoom implements palace.Repository.
func (s *Store) GetRoom(ctx context.Context, userID, name string) (*palace.Room, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, description, connections, created_at FROM rooms WHERE user_id = ? AND name = ?`,
		userID, name,
	)
	room, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrRoomNotFound
	}
	if err != nil {
		return nil, shared.StorageError("palace", "GetRoom", err)
	}
	return room, nil
}

// ListRooms implements palace.Repository.
func (s *Store) ListRooms(ctx context.Context, userID string) ([]*palace.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, description, connections, created_at FROM rooms
		 WHERE user_id = ? ORDER BY created_at, rowid`,
		userID,
	)
	if err != nil {
		return nil, shared.StorageError("palace", "ListRooms", err)
	}
	defer rows.Close()

	out := make([]*palace.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, shared.StorageError("palace", "ListRooms", err)
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("palace", "ListRooms", err)
	}
	return out, nil
}

// AddLocation implements palace.Repository.
func (s *Store) AddLocation(ctx context.Context, loc *palace.Location) error {
	keywords, err := json.Marshal(nonNil(loc.Keywords))
	if err != nil {
		return fmt.Errorf("sqlite: encode keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO locations (id, user_id, room, pos_x, pos_y, pos_z, visual_anchor, content, keywords, created_at, last_accessed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loc.ID, loc.UserID, loc.Room,
		loc.Position.X, loc.Position.Y, loc.Position.Z,
		loc.VisualAnchor, loc.Content, string(keywords),
		toMillis(loc.CreatedAt), toMillis(loc.LastAccessed),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return shared.ErrRoomNotFound
		}
		return shared.StorageError("palace", "AddLocation", err)
	}
	return nil
}

// ListLocations implements palace.Repository.
func (s *Store) ListLocations(ctx context.Context, userID, room string) ([]*palace.Location, error) {
	query := `SELECT id, user_id, room, pos_x, pos_y, pos_z, visual_anchor, content, keywords, created_at, last_accessed
		FROM locations WHERE user_id = ?`
	args := []any{userID}
	if room != "" {
		query += ` AND room = ?`
		args = append(args, room)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shared.StorageError("palace", "ListLocations", err)
	}
	defer rows.Close()

	out := make([]*palace.Location, 0)
	for rows.Next() {
		var (
			loc          palace.Location
			keywords     string
			createdAt    int64
			lastAccessed int64
		)
		if err := rows.Scan(
			&loc.ID, &loc.UserID, &loc.Room,
			&loc.Position.X, &loc.Position.Y, &loc.Position.Z,
			&loc.VisualAnchor, &loc.Content, &keywords,
			&createdAt, &lastAccessed,
		); err != nil {
			return nil, shared.StorageError("palace", "ListLocations", err)
		}
		if err := json.Unmarshal([]byte(keywords), &loc.Keywords); err != nil {
			return nil, fmt.Errorf("sqlite: decode keywords of %s: %w", loc.ID, err)
		}
		loc.CreatedAt = fromMillis(createdAt)
		loc.LastAccessed = fromMillis(lastAccessed)
		out = append(out, &loc)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("palace", "ListLocations", err)
	}
	return out, nil
}

// TouchLocations implements palace.Repository.
func (s *Store) TouchLocations(ctx context.Context, userID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+2)
	args = append(args, toMillis(at), userID)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE locations SET last_accessed = ? WHERE user_id = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return shared.StorageError("palace", "TouchLocations", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*palace.Room, error) {
	var (
		room      palace.Room
		conns     string
		createdAt int64
	)
	if err := row.Scan(&room.UserID, &room.Name, &room.Description, &conns, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(conns), &room.Connections); err != nil {
		return nil, fmt.Errorf("decode connections of %s: %w", room.Name, err)
	}
	room.CreatedAt = fromMillis(createdAt)
	return &room, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
