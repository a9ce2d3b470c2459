// Package memory provides in-process implementations of the domain stores.
// Values are deep-copied on the way in and out so callers never share state
// with the store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ProfileStore keeps profiles and challenges in memory.
type ProfileStore struct {
	mu         sync.RWMutex
	profiles   map[string]*progression.UserProfile
	challenges map[string][]progression.ChallengeInstance
}

// NewProfileStore creates an empty ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles:   make(map[string]*progression.UserProfile),
		challenges: make(map[string][]progression.ChallengeInstance),
	}
}

// GetProfile implements progression.ProfileStore.
func (s *ProfileStore) GetProfile(_ context.Context, userID string) (*progression.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p.Clone(), nil
}

// SaveProfile implements progression.ProfileStore.
func (s *ProfileStore) SaveProfile(_ context.Context, profile *progression.UserProfile, created ...progression.ChallengeInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.ID] = profile.Clone()
	for _, c := range created {
		c.Targets = append([]string(nil), c.Targets...)
		s.challenges[profile.ID] = append(s.challenges[profile.ID], c)
	}
	return nil
}

// ListChallenges implements progression.ProfileStore.
func (s *ProfileStore) ListChallenges(_ context.Context, userID string, activeOnly bool) ([]progression.ChallengeInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.challenges[userID]
	out := make([]progression.ChallengeInstance, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		c := all[i]
		if activeOnly && c.Completed {
			continue
		}
		c.Targets = append([]string(nil), c.Targets...)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
