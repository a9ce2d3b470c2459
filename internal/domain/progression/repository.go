package progression

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// ProfileStore хранит профили и сгенерированные испытания.
// Реализации: memory, sqlite, postgres, redis (кэширующий декоратор).
type ProfileStore interface {
	// GetProfile возвращает профиль; отсутствие - shared.ErrProfileNotFound.
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)

	// SaveProfile сохраняет профиль и новые испытания одной атомарной операцией.
	SaveProfile(ctx context.Context, profile *UserProfile, created ...ChallengeInstance) error

	// ListChallenges возвращает испытания пользователя, новые первыми.
	ListChallenges(ctx context.Context, userID string, activeOnly bool) ([]ChallengeInstance, error)
}
