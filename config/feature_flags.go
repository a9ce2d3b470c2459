package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles for the progression engine.
// Flags are process-wide; they are read once when the engine is built.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	// === Challenges ===
	FeatureChallenges         = "challenges.generation" // Random challenge after store/visit
	FeatureExtendedChallenges = "challenges.extended"   // visual_anchors, position_recall, palace_tour

	// === Achievements ===
	FeatureActivityAchievements = "achievements.activity" // first_search, memory_journey, connected_rooms

	// === Messages ===
	FeaturePersonalityMessages = "messages.personality" // Personality line in results
)

// LoadFeatureFlags loads feature flags from defaults and environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureChallenges] = &Feature{
		Name:        FeatureChallenges,
		Description: "Roll for a challenge after storing a memory or visiting a room",
		Enabled:     true,
	}
	ff.features[FeatureExtendedChallenges] = &Feature{
		Name:        FeatureExtendedChallenges,
		Description: "Add the catalog challenges that have no generation rule by default",
		Enabled:     false,
	}
	ff.features[FeatureActivityAchievements] = &Feature{
		Name:        FeatureActivityAchievements,
		Description: "Award first_search, memory_journey and connected_rooms",
		Enabled:     false,
	}
	ff.features[FeaturePersonalityMessages] = &Feature{
		Name:        FeaturePersonalityMessages,
		Description: "Phrase results in the voice of the user's personality",
		Enabled:     true,
	}
}

// loadFromEnvironment applies overrides.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_ACHIEVEMENTS_ACTIVITY=true
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		if val := os.Getenv(featureNameToEnvKey(name)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "challenges.extended" -> "FEATURE_CHALLENGES_EXTENDED"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether a feature is on. Unknown names are off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	return ok && feature.Enabled
}

// SetEnabled switches a feature on or off.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// Enabled returns the names of enabled features, sorted.
func (ff *FeatureFlags) Enabled() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]string, 0, len(ff.features))
	for name, f := range ff.features {
		if f.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// --- Errors ---

// ErrFeatureNotFound is returned for an unknown feature name.
var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
