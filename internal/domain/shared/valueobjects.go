// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies the owner of a palace and a progression profile.
// "default" is a regular id, not a special case.
type UserID string

// DefaultUserID is used when the caller does not supply a user context.
const DefaultUserID UserID = "default"

var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.@:-]{0,127}$`)

// IsValid checks if the user ID has an acceptable shape.
func (u UserID) IsValid() bool {
	return userIDRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation. Empty input maps to fallback.
func NewUserID(id string, fallback UserID) (UserID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = string(fallback)
	}
	uid := UserID(id)
	if !uid.IsValid() {
		return "", ErrInvalidUserID
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Position Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Position is a spatial coordinate inside a room.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Less orders positions by x, then y, then z.
func (p Position) Less(other Position) bool {
	if p.X != other.X {
		return p.X < other.X
	}
	if p.Y != other.Y {
		return p.Y < other.Y
	}
	return p.Z < other.Z
}

// String returns a compact representation.
func (p Position) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}

// ═══════════════════════════════════════════════════════════════════════════
// Difficulty Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Difficulty tags a generated challenge.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid checks if the difficulty is known.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// DifficultyForLevel maps a user level to a challenge difficulty.
func DifficultyForLevel(level int) Difficulty {
	switch {
	case level < 5:
		return DifficultyEasy
	case level < 10:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Level titles
// ═══════════════════════════════════════════════════════════════════════════

// LevelTitle returns a human-readable title for the level.
func LevelTitle(level int) string {
	switch {
	case level < 3:
		return "Memory Beginner"
	case level < 5:
		return "Memory Builder"
	case level < 10:
		return "Palace Architect"
	case level < 20:
		return "Memory Master"
	default:
		return "Grand Mnemonist"
	}
}
