package progression

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// StartingLevel - уровень нового профиля.
	StartingLevel = 1

	// StartingXPToNextLevel - порог первого уровня.
	StartingXPToNextLevel = 100

	// DefaultDisplayName - имя профиля по умолчанию.
	DefaultDisplayName = "Memory Builder"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRecord - запись о полученном достижении.
type AchievementRecord struct {
	ID         string    `json:"id"`
	Unlocked   bool      `json:"unlocked"`
	UnlockedAt time.Time `json:"unlocked_at"`
	XPReward   int       `json:"xp_reward"`
}

// UserProfile - профиль прогресса одного пользователя.
// Хранится целиком одним документом; ключ - ID.
type UserProfile struct {
	// ID - идентификатор пользователя.
	ID string `json:"id"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// Personality - ключ личности помощника (sage, explorer...).
	Personality string `json:"personality"`

	// Level - текущий уровень (>= 1).
	Level int `json:"level"`

	// XP - опыт внутри текущего уровня (0 <= XP < XPToNextLevel).
	XP int `json:"xp"`

	// XPToNextLevel - порог следующего уровня, не убывает.
	XPToNextLevel int `json:"xp_to_next_level"`

	// LastActive - время последнего действия.
	LastActive time.Time `json:"last_active"`

	// StreakDays - серия дней подряд.
	StreakDays int `json:"streak_days"`

	// StreakLastUpdated - последнее касание серии (важна только дата).
	StreakLastUpdated time.Time `json:"streak_last_updated"`

	// Achievements - полученные достижения, уникальные по ID.
	Achievements []AchievementRecord `json:"achievements"`

	// Счётчики.
	TotalMemories       int `json:"total_memories"`
	TotalRooms          int `json:"total_rooms"`
	ChallengesCompleted int `json:"challenges_completed"`
	SearchesWithResults int `json:"searches_with_results"`
	JourneysTaken       int `json:"journeys_taken"`
	TotalXPEarned       int `json:"total_xp_earned"`

	// ActiveChallenges - ID активных испытаний.
	ActiveChallenges []string `json:"active_challenges"`

	// LearningPaths - прогресс по путям обучения в процентах (0-100).
	LearningPaths map[string]float64 `json:"learning_paths"`

	// CompletedTasks - задания, выполненные в текущем этапе каждого пути.
	CompletedTasks map[string][]string `json:"completed_tasks,omitempty"`

	// CreatedAt - время создания профиля.
	CreatedAt time.Time `json:"created_at"`
}

// NewUserProfile создаёт профиль нового пользователя.
// День создания считается первым днём серии.
func NewUserProfile(id, personality string, now time.Time) *UserProfile {
	return &UserProfile{
		ID:                id,
		DisplayName:       DefaultDisplayName,
		Personality:       personality,
		Level:             StartingLevel,
		XP:                0,
		XPToNextLevel:     StartingXPToNextLevel,
		LastActive:        now,
		StreakDays:        1,
		StreakLastUpdated: now,
		Achievements:      make([]AchievementRecord, 0),
		ActiveChallenges:  make([]string, 0),
		LearningPaths:     make(map[string]float64),
		CompletedTasks:    make(map[string][]string),
		CreatedAt:         now,
	}
}

// HasAchievement проверяет, получено ли достижение.
func (p *UserProfile) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a.ID == id && a.Unlocked {
			return true
		}
	}
	return false
}

// AchievementIDs возвращает ID полученных достижений в порядке получения.
func (p *UserProfile) AchievementIDs() []string {
	ids := make([]string, 0, len(p.Achievements))
	for _, a := range p.Achievements {
		if a.Unlocked {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Touch отмечает активность пользователя.
func (p *UserProfile) Touch(now time.Time) {
	p.LastActive = now
}

// Normalize восстанавливает nil-коллекции после десериализации.
func (p *UserProfile) Normalize() {
	if p.Achievements == nil {
		p.Achievements = make([]AchievementRecord, 0)
	}
	if p.ActiveChallenges == nil {
		p.ActiveChallenges = make([]string, 0)
	}
	if p.LearningPaths == nil {
		p.LearningPaths = make(map[string]float64)
	}
	if p.CompletedTasks == nil {
		p.CompletedTasks = make(map[string][]string)
	}
	if p.Level < StartingLevel {
		p.Level = StartingLevel
	}
	if p.XPToNextLevel < 1 {
		p.XPToNextLevel = StartingXPToNextLevel
	}
}

// Clone возвращает глубокую копию профиля.
// Движок мутирует копию и сохраняет её только при успехе.
func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	cp.Achievements = append([]AchievementRecord(nil), p.Achievements...)
	cp.ActiveChallenges = append([]string(nil), p.ActiveChallenges...)
	cp.LearningPaths = make(map[string]float64, len(p.LearningPaths))
	for k, v := range p.LearningPaths {
		cp.LearningPaths[k] = v
	}
	cp.CompletedTasks = make(map[string][]string, len(p.CompletedTasks))
	for k, v := range p.CompletedTasks {
		cp.CompletedTasks[k] = append([]string(nil), v...)
	}
	cp.Normalize()
	return &cp
}

// AddActiveChallenge добавляет испытание в список активных.
func (p *UserProfile) AddActiveChallenge(id string) {
	for _, existing := range p.ActiveChallenges {
		if existing == id {
			return
		}
	}
	p.ActiveChallenges = append(p.ActiveChallenges, id)
}
