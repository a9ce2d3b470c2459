package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// GetProfile implements progression.ProfileStore.
func (s *Store) GetProfile(ctx context.Context, userID string) (*progression.UserProfile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM profiles WHERE user_id = ?`, userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, shared.ErrProfileNotFound
	}
	if err != nil {
		return nil, shared.StorageError("progression", "GetProfile", err)
	}

	var p progression.UserProfile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("sqlite: decode profile %s: %w", userID, err)
	}
	p.Normalize()
	return &p, nil
}

// SaveProfile implements progression.ProfileStore. The profile upsert and the
// challenge inserts share one transaction.
func (s *Store) SaveProfile(ctx context.Context, profile *progression.UserProfile, created ...progression.ChallengeInstance) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("sqlite: encode profile: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, document, level, total_xp, updated_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   document = excluded.document,
			   level = excluded.level,
			   total_xp = excluded.total_xp,
			   updated_at = excluded.updated_at`,
			profile.ID, string(doc), profile.Level, profile.TotalXPEarned, toMillis(profile.LastActive),
		); err != nil {
			return err
		}

		for _, c := range created {
			cdoc, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("encode challenge %s: %w", c.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO challenges (id, user_id, type, document, completed, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
				c.ID, profile.ID, c.Type, string(cdoc), c.Completed, toMillis(c.CreatedAt),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return shared.StorageError("progression", "SaveProfile", err)
	}
	return nil
}

// ListChallenges implements progression.ProfileStore.
func (s *Store) ListChallenges(ctx context.Context, userID string, activeOnly bool) ([]progression.ChallengeInstance, error) {
	query := `SELECT document FROM challenges WHERE user_id = ?`
	if activeOnly {
		query += ` AND completed = 0`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, shared.StorageError("progression", "ListChallenges", err)
	}
	defer rows.Close()

	out := make([]progression.ChallengeInstance, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, shared.StorageError("progression", "ListChallenges", err)
		}
		var c progression.ChallengeInstance
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, fmt.Errorf("sqlite: decode challenge: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("progression", "ListChallenges", err)
	}
	return out, nil
}
