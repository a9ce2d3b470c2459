package engine

import (
	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ProgressSnapshot is the profile state after an action.
type ProgressSnapshot struct {
	Level         int    `json:"level"`
	Title         string `json:"title"`
	XP            int    `json:"xp"`
	XPToNextLevel int    `json:"xp_to_next_level"`
	StreakDays    int    `json:"streak_days"`
	TotalXP       int    `json:"total_xp_earned"`
}

// AchievementView describes a newly unlocked achievement.
type AchievementView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	XPReward    int    `json:"xp_reward"`
}

// LevelUp is set when one or more thresholds were crossed during the action.
type LevelUp struct {
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	Title    string `json:"title"`
}

// ChallengeView describes a challenge generated by the action.
type ChallengeView struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Room        string            `json:"room,omitempty"`
	TargetCount int               `json:"target_count"`
	Difficulty  shared.Difficulty `json:"difficulty"`
	XPReward    int               `json:"xp_reward"`
}

// ProgressResult reports everything one action changed.
type ProgressResult struct {
	UserID     string    `json:"user_id"`
	Event      EventKind `json:"event"`
	NewProfile bool      `json:"new_profile,omitempty"`

	Progress ProgressSnapshot `json:"progress"`

	// XPGained is the total for the action: base + streak bonus + achievements + stage.
	XPGained    int `json:"xp_gained"`
	BaseXP      int `json:"base_xp"`
	StreakBonus int `json:"streak_bonus,omitempty"`

	StreakBroken   bool `json:"streak_broken,omitempty"`
	PreviousStreak int  `json:"previous_streak,omitempty"`

	Achievements []AchievementView       `json:"achievements_unlocked"`
	LevelUp      *LevelUp                `json:"level_up,omitempty"`
	Challenge    *ChallengeView          `json:"challenge,omitempty"`
	Stage        *progression.StageResult `json:"stage,omitempty"`

	// Message is a personality-phrased line, empty when nothing notable happened.
	Message string `json:"message,omitempty"`
}

// SnapshotOf returns the ProgressSnapshot of a profile.
func SnapshotOf(p *progression.UserProfile) ProgressSnapshot {
	return ProgressSnapshot{
		Level:         p.Level,
		Title:         shared.LevelTitle(p.Level),
		XP:            p.XP,
		XPToNextLevel: p.XPToNextLevel,
		StreakDays:    p.StreakDays,
		TotalXP:       p.TotalXPEarned,
	}
}

func viewOfAchievement(d progression.AchievementDefinition) AchievementView {
	return AchievementView{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		XPReward:    d.XPReward,
	}
}

func viewOfChallenge(c *progression.ChallengeInstance) *ChallengeView {
	return &ChallengeView{
		ID:          c.ID,
		Type:        c.Type,
		Name:        c.Name,
		Description: c.Description,
		Room:        c.Room,
		TargetCount: len(c.Targets),
		Difficulty:  c.Difficulty,
		XPReward:    c.XPReward,
	}
}
