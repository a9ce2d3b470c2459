// Package catalog loads the static game definitions: achievements,
// challenge templates, learning paths and personalities.
package catalog

import (
	"fmt"
	"sort"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// Catalog is an immutable, validated set of definitions.
// It implements progression.Catalog and is safe for concurrent reads.
type Catalog struct {
	server          ServerInfo
	defaults        Defaults
	reviewIntervals []int

	achievements  []progression.AchievementDefinition
	challenges    []progression.ChallengeTemplate
	paths         []progression.LearningPathTemplate
	personalities []progression.Personality

	achievementByID  map[string]int
	challengeByKey   map[string]int
	pathByID         map[string]int
	personalityByKey map[string]int
}

var _ progression.Catalog = (*Catalog)(nil)

func newCatalog(doc Document) (*Catalog, error) {
	c := &Catalog{
		server:           doc.Server,
		defaults:         doc.Defaults,
		reviewIntervals:  append([]int(nil), doc.ReviewIntervals...),
		achievements:     doc.Achievements,
		challenges:       doc.Challenges,
		paths:            doc.LearningPaths,
		personalities:    doc.Personalities,
		achievementByID:  make(map[string]int, len(doc.Achievements)),
		challengeByKey:   make(map[string]int, len(doc.Challenges)),
		pathByID:         make(map[string]int, len(doc.LearningPaths)),
		personalityByKey: make(map[string]int, len(doc.Personalities)),
	}

	for i, a := range c.achievements {
		if err := index(c.achievementByID, a.ID, i, "achievement"); err != nil {
			return nil, err
		}
	}
	for i, t := range c.challenges {
		if err := index(c.challengeByKey, t.Key, i, "challenge"); err != nil {
			return nil, err
		}
	}
	for i, p := range c.paths {
		if err := index(c.pathByID, p.ID, i, "learning path"); err != nil {
			return nil, err
		}
	}
	for i, p := range c.personalities {
		if err := index(c.personalityByKey, p.Key, i, "personality"); err != nil {
			return nil, err
		}
	}
	if !sort.IntsAreSorted(c.reviewIntervals) {
		return nil, invalid(fmt.Errorf("review_intervals must be ascending"))
	}
	return c, nil
}

func index(m map[string]int, key string, i int, kind string) error {
	if _, dup := m[key]; dup {
		return invalid(fmt.Errorf("duplicate %s %q", kind, key))
	}
	m[key] = i
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOOKUPS
// ══════════════════════════════════════════════════════════════════════════════

// Achievement implements progression.Catalog.
func (c *Catalog) Achievement(id string) (progression.AchievementDefinition, error) {
	i, ok := c.achievementByID[id]
	if !ok {
		return progression.AchievementDefinition{}, shared.ErrAchievementNotFound.WithOptions(c.achievementIDs()...)
	}
	return c.achievements[i], nil
}

// Achievements implements progression.Catalog.
func (c *Catalog) Achievements() []progression.AchievementDefinition {
	return append([]progression.AchievementDefinition(nil), c.achievements...)
}

// ChallengeTemplate implements progression.Catalog.
func (c *Catalog) ChallengeTemplate(key string) (progression.ChallengeTemplate, error) {
	i, ok := c.challengeByKey[key]
	if !ok {
		keys := make([]string, 0, len(c.challenges))
		for _, t := range c.challenges {
			keys = append(keys, t.Key)
		}
		return progression.ChallengeTemplate{}, shared.ErrTemplateNotFound.WithOptions(keys...)
	}
	return c.challenges[i], nil
}

// ChallengeTemplates implements progression.Catalog.
func (c *Catalog) ChallengeTemplates() []progression.ChallengeTemplate {
	return append([]progression.ChallengeTemplate(nil), c.challenges...)
}

// LearningPath implements progression.Catalog.
func (c *Catalog) LearningPath(id string) (progression.LearningPathTemplate, error) {
	i, ok := c.pathByID[id]
	if !ok {
		ids := make([]string, 0, len(c.paths))
		for _, p := range c.paths {
			ids = append(ids, p.ID)
		}
		return progression.LearningPathTemplate{}, shared.ErrPathNotFound.WithOptions(ids...)
	}
	return c.paths[i], nil
}

// LearningPaths implements progression.Catalog.
func (c *Catalog) LearningPaths() []progression.LearningPathTemplate {
	return append([]progression.LearningPathTemplate(nil), c.paths...)
}

// Personality implements progression.Catalog.
func (c *Catalog) Personality(key string) (progression.Personality, error) {
	i, ok := c.personalityByKey[key]
	if !ok {
		return progression.Personality{}, shared.ErrPersonalityNotFound.WithOptions(c.PersonalityKeys()...)
	}
	return c.personalities[i], nil
}

// Personalities implements progression.Catalog.
func (c *Catalog) Personalities() []progression.Personality {
	return append([]progression.Personality(nil), c.personalities...)
}

// PersonalityKeys returns personality keys in catalog order.
func (c *Catalog) PersonalityKeys() []string {
	keys := make([]string, 0, len(c.personalities))
	for _, p := range c.personalities {
		keys = append(keys, p.Key)
	}
	return keys
}

func (c *Catalog) achievementIDs() []string {
	ids := make([]string, 0, len(c.achievements))
	for _, a := range c.achievements {
		ids = append(ids, a.ID)
	}
	return ids
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER METADATA
// ══════════════════════════════════════════════════════════════════════════════

// ServerInfo returns the server description block.
func (c *Catalog) ServerInfo() ServerInfo {
	info := c.server
	info.Capabilities = append([]string(nil), c.server.Capabilities...)
	return info
}

// Defaults returns fallback values for new palaces.
func (c *Catalog) Defaults() Defaults {
	d := c.defaults
	d.Suggestions = append([]string(nil), c.defaults.Suggestions...)
	return d
}

// ReviewIntervals returns the spaced-repetition ladder in days.
func (c *Catalog) ReviewIntervals() []int {
	return append([]int(nil), c.reviewIntervals...)
}
