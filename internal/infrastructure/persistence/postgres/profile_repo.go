package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// Profiles are stored whole as one JSONB document; level and total XP are
// duplicated into columns for ad-hoc queries.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements progression.ProfileStore for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

var _ progression.ProfileStore = (*ProfileRepository)(nil)

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// GetProfile returns the stored profile or shared.ErrProfileNotFound.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*progression.UserProfile, error) {
	var doc []byte
	err := r.conn.QueryRow(ctx, `SELECT document FROM profiles WHERE user_id = $1`, userID).Scan(&doc)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, shared.StorageError("progression", "GetProfile", err)
	}

	var p progression.UserProfile
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile %s: %w", userID, err)
	}
	p.Normalize()
	return &p, nil
}

// SaveProfile upserts the profile and inserts the new challenges in one transaction.
func (r *ProfileRepository) SaveProfile(ctx context.Context, profile *progression.UserProfile, created ...progression.ChallengeInstance) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	err = r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO profiles (user_id, document, level, total_xp, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				document = EXCLUDED.document,
				level = EXCLUDED.level,
				total_xp = EXCLUDED.total_xp,
				updated_at = EXCLUDED.updated_at
		`, profile.ID, doc, profile.Level, profile.TotalXPEarned, profile.LastActive); err != nil {
			return err
		}

		if len(created) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, c := range created {
			cdoc, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("failed to marshal challenge %s: %w", c.ID, err)
			}
			batch.Queue(`
				INSERT INTO challenges (id, user_id, type, document, completed, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, c.ID, profile.ID, c.Type, cdoc, c.Completed, c.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return shared.StorageError("progression", "SaveProfile", err)
	}
	return nil
}

// ListChallenges returns the user's challenges, newest first.
func (r *ProfileRepository) ListChallenges(ctx context.Context, userID string, activeOnly bool) ([]progression.ChallengeInstance, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT document FROM challenges
		WHERE user_id = $1 AND (NOT $2 OR completed = FALSE)
		ORDER BY created_at DESC, seq DESC
	`, userID, activeOnly)
	if err != nil {
		return nil, shared.StorageError("progression", "ListChallenges", err)
	}
	defer rows.Close()

	out := make([]progression.ChallengeInstance, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, shared.StorageError("progression", "ListChallenges", err)
		}
		var c progression.ChallengeInstance
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("progression", "ListChallenges", err)
	}
	return out, nil
}
