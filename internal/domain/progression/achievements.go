package progression

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRule - условие разблокировки достижения.
type AchievementRule struct {
	ID  string
	Met func(p *UserProfile, s PalaceSnapshot) bool
}

// baseRules - основная таблица правил. Порядок определяет порядок результата.
var baseRules = []AchievementRule{
	{AchievementFirstRoom, func(_ *UserProfile, s PalaceSnapshot) bool { return s.RoomCount >= 1 }},
	{AchievementFirstMemory, func(_ *UserProfile, s PalaceSnapshot) bool { return s.MemoryCount >= 1 }},
	{AchievementThreeRooms, func(_ *UserProfile, s PalaceSnapshot) bool { return s.RoomCount >= 3 }},
	{AchievementTenMemories, func(_ *UserProfile, s PalaceSnapshot) bool { return s.MemoryCount >= 10 }},
	{AchievementThreeDayStreak, func(p *UserProfile, _ PalaceSnapshot) bool { return p.StreakDays >= 3 }},
	{AchievementSevenDayStreak, func(p *UserProfile, _ PalaceSnapshot) bool { return p.StreakDays >= 7 }},
}

// activityRules - правила для достижений поиска, прогулок и связей.
// Включаются флагом; идут после основной таблицы.
var activityRules = []AchievementRule{
	{AchievementFirstSearch, func(p *UserProfile, _ PalaceSnapshot) bool { return p.SearchesWithResults >= 1 }},
	{AchievementMemoryJourney, func(p *UserProfile, _ PalaceSnapshot) bool { return p.JourneysTaken >= 1 }},
	{AchievementConnectedRooms, func(_ *UserProfile, s PalaceSnapshot) bool { return s.ConnectedRooms >= 3 }},
}

// unreachableAchievements - определены в каталоге, но без правила:
// perfect_recall требует оценки выполнения испытаний.
var unreachableAchievements = []string{AchievementPerfectRecall}

// UnlockedAchievement - новое достижение и начисленный за него опыт.
type UnlockedAchievement struct {
	Definition AchievementDefinition `json:"definition"`
	Level      LevelResult           `json:"level"`
}

// AchievementEvaluator проверяет правила и разблокирует достижения.
type AchievementEvaluator struct {
	catalog  Catalog
	leveling *LevelingPolicy
	rules    []AchievementRule
}

// EvaluatorOption настраивает AchievementEvaluator.
type EvaluatorOption func(*AchievementEvaluator)

// WithActivityRules включает правила first_search, memory_journey, connected_rooms.
func WithActivityRules(enabled bool) EvaluatorOption {
	return func(e *AchievementEvaluator) {
		if enabled {
			e.rules = append(append([]AchievementRule(nil), baseRules...), activityRules...)
		} else {
			e.rules = baseRules
		}
	}
}

// NewAchievementEvaluator создаёт проверщик достижений.
func NewAchievementEvaluator(catalog Catalog, leveling *LevelingPolicy, opts ...EvaluatorOption) *AchievementEvaluator {
	e := &AchievementEvaluator{
		catalog:  catalog,
		leveling: leveling,
		rules:    baseRules,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate разблокирует достижения, условия которых выполнены.
// Каждое правило срабатывает не более одного раза на профиль;
// повторный вызов с теми же входными данными возвращает пустой список.
func (e *AchievementEvaluator) Evaluate(p *UserProfile, s PalaceSnapshot, now time.Time) ([]UnlockedAchievement, error) {
	var unlocked []UnlockedAchievement

	for _, rule := range e.rules {
		if p.HasAchievement(rule.ID) || !rule.Met(p, s) {
			continue
		}

		def, err := e.catalog.Achievement(rule.ID)
		if err != nil {
			return nil, fmt.Errorf("achievement %s: %w", rule.ID, err)
		}

		p.Achievements = append(p.Achievements, AchievementRecord{
			ID:         def.ID,
			Unlocked:   true,
			UnlockedAt: now,
			XPReward:   def.XPReward,
		})

		lvl, err := e.leveling.AddXP(p, def.XPReward)
		if err != nil {
			return nil, fmt.Errorf("achievement %s reward: %w", rule.ID, err)
		}

		unlocked = append(unlocked, UnlockedAchievement{Definition: def, Level: lvl})
	}

	return unlocked, nil
}

// RuleIDs возвращает ID достижений, у которых есть правило.
func (e *AchievementEvaluator) RuleIDs() []string {
	ids := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		ids = append(ids, r.ID)
	}
	return ids
}

// UnreachableAchievements возвращает определённые, но недостижимые достижения.
func UnreachableAchievements() []string {
	return append([]string(nil), unreachableAchievements...)
}
