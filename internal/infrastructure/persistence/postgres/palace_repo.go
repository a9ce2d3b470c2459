package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PALACE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PalaceRepository implements palace.Repository for PostgreSQL.
type PalaceRepository struct {
	conn *Connection
}

var _ palace.Repository = (*PalaceRepository)(nil)

// NewPalaceRepository creates a new PalaceRepository.
func NewPalaceRepository(conn *Connection) *PalaceRepository {
	return &PalaceRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Rooms
// ─────────────────────────────────────────────────────────────────────────────

// CreateRoom creates a room. A repeated name returns shared.ErrRoomExists.
func (r *PalaceRepository) CreateRoom(ctx context.Context, room *palace.Room) error {
	conns, err := json.Marshal(nonNil(room.Connections))
	if err != nil {
		return fmt.Errorf("failed to marshal connections: %w", err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO rooms (user_id, name, description, connections, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, room.UserID, room.Name, room.Description, conns, room.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrRoomExists
		}
		return shared.StorageError("palace", "CreateRoom", err)
	}
	return nil
}

// GetRoom returns a room by name.
func (r *PalaceRepository) GetRoom(ctx context.Context, userID, name string) (*palace.Room, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT user_id, name, description, connections, created_at
		FROM rooms WHERE user_id = $1 AND name = $2
	`, userID, name)

	room, err := scanRoom(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRoomNotFound
		}
		return nil, shared.StorageError("palace", "GetRoom", err)
	}
	return room, nil
}

// ListRooms returns the user's rooms in creation order.
func (r *PalaceRepository) ListRooms(ctx context.Context, userID string) ([]*palace.Room, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id, name, description, connections, created_at
		FROM rooms WHERE user_id = $1
		ORDER BY created_at, seq
	`, userID)
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

// ─────────────────────────────────────────────────────────────────────────────
// Locations
// ─────────────────────────────────────────────────────────────────────────────

// AddLocation stores a memory. A missing room returns shared.ErrRoomNotFound.
func (r *PalaceRepository) AddLocation(ctx context.Context, loc *palace.Location) error {
	keywords, err := json.Marshal(nonNil(loc.Keywords))
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO locations (
			id, user_id, room, pos_x, pos_y, pos_z,
			visual_anchor, content, keywords, created_at, last_accessed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		loc.ID, loc.UserID, loc.Room,
		loc.Position.X, loc.Position.Y, loc.Position.Z,
		loc.VisualAnchor, loc.Content, keywords,
		loc.CreatedAt, loc.LastAccessed,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrRoomNotFound
		}
		return shared.StorageError("palace", "AddLocation", err)
	}
	return nil
}

// ListLocations returns memories in insertion order; empty room means all rooms.
func (r *PalaceRepository) ListLocations(ctx context.Context, userID, room string) ([]*palace.Location, error) {
	query := `
		SELECT id, user_id, room, pos_x, pos_y, pos_z,
		       visual_anchor, content, keywords, created_at, last_accessed
		FROM locations
		WHERE user_id = $1 AND ($2 = '' OR room = $2)
		ORDER BY seq
	`
	rows, err := r.conn.Query(ctx, query, userID, room)
	if err != nil {
		return nil, shared.StorageError("palace", "ListLocations", err)
	}
	defer rows.Close()

	out := make([]*palace.Location, 0)
	for rows.Next() {
		var (
			loc      palace.Location
			keywords []byte
		)
		if err := rows.Scan(
			&loc.ID, &loc.UserID, &loc.Room,
			&loc.Position.X, &loc.Position.Y, &loc.Position.Z,
			&loc.VisualAnchor, &loc.Content, &keywords,
			&loc.CreatedAt, &loc.LastAccessed,
		); err != nil {
			return nil, shared.StorageError("palace", "ListLocations", err)
		}
		if err := json.Unmarshal(keywords, &loc.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords of %s: %w", loc.ID, err)
		}
		loc.CreatedAt = loc.CreatedAt.UTC()
		loc.LastAccessed = loc.LastAccessed.UTC()
		out = append(out, &loc)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("palace", "ListLocations", err)
	}
	return out, nil
}

// TouchLocations sets LastAccessed on the listed memories.
func (r *PalaceRepository) TouchLocations(ctx context.Context, userID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.conn.Exec(ctx, `
		UPDATE locations SET last_accessed = $1
		WHERE user_id = $2 AND id = ANY($3)
	`, at, userID, ids)
	if err != nil {
		return shared.StorageError("palace", "TouchLocations", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanRoom(row pgx.Row) (*palace.Room, error) {
	var (
		room  palace.Room
		conns []byte
	)
	if err := row.Scan(&room.UserID, &room.Name, &room.Description, &conns, &room.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(conns, &room.Connections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
	}
	room.CreatedAt = room.CreatedAt.UTC()
	return &room, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
