package progression

import (
	"strconv"
	"strings"

	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Идентификаторы достижений.
const (
	AchievementFirstRoom      = "first_room"
	AchievementFirstMemory    = "first_memory"
	AchievementThreeRooms     = "three_rooms"
	AchievementTenMemories    = "ten_memories"
	AchievementMemoryJourney  = "memory_journey"
	AchievementPerfectRecall  = "perfect_recall"
	AchievementThreeDayStreak = "three_day_streak"
	AchievementSevenDayStreak = "seven_day_streak"
	AchievementFirstSearch    = "first_search"
	AchievementConnectedRooms = "connected_rooms"
)

// Типы испытаний.
const (
	ChallengeQuickRecall    = "quick_recall"
	ChallengeRoomMastery    = "room_mastery"
	ChallengeVisualAnchors  = "visual_anchors"
	ChallengePositionRecall = "position_recall"
	ChallengePalaceTour     = "palace_tour"
)

// StageCount - число этапов, на которое рассчитано отображение процентов в этап.
const StageCount = 5

// stageSpan - ширина этапа в процентах.
const stageSpan = 100.0 / StageCount

// AchievementDefinition описывает достижение.
type AchievementDefinition struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
	XPReward    int    `json:"xp_reward" yaml:"xp_reward"`
}

// DifficultyLevel - параметры испытания для одной сложности.
type DifficultyLevel struct {
	Count    int `json:"count" yaml:"count"`
	XPReward int `json:"xp_reward" yaml:"xp_reward"`
}

// ChallengeTemplate - шаблон испытания.
// Либо XPReward (плоская награда), либо таблица Difficulties.
type ChallengeTemplate struct {
	Key          string                                `json:"key" yaml:"key"`
	Name         string                                `json:"name" yaml:"name"`
	Description  string                                `json:"description" yaml:"description"`
	XPReward     int                                   `json:"xp_reward,omitempty" yaml:"xp_reward,omitempty"`
	Difficulties map[shared.Difficulty]DifficultyLevel `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// Describe подставляет {count} и {room} в описание.
func (t ChallengeTemplate) Describe(count int, room string) string {
	return strings.NewReplacer("{count}", strconv.Itoa(count), "{room}", room).Replace(t.Description)
}

// Level возвращает параметры для сложности.
func (t ChallengeTemplate) Level(d shared.Difficulty) (DifficultyLevel, bool) {
	lvl, ok := t.Difficulties[d]
	return lvl, ok
}

// Stage - этап пути обучения.
type Stage struct {
	Name     string   `json:"name" yaml:"name"`
	Tasks    []string `json:"tasks" yaml:"tasks"`
	XPReward int      `json:"xp_reward" yaml:"xp_reward"`
}

// HasTask проверяет, входит ли задание в этап.
func (s Stage) HasTask(label string) bool {
	for _, t := range s.Tasks {
		if t == label {
			return true
		}
	}
	return false
}

// LearningPathTemplate - шаблон пути обучения.
type LearningPathTemplate struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Stages      []Stage `json:"stages" yaml:"stages"`
}

// StageIndex возвращает индекс текущего этапа для процента прогресса.
func (t LearningPathTemplate) StageIndex(progress float64) int {
	idx := int(progress / stageSpan)
	if idx < 0 {
		idx = 0
	}
	if last := len(t.Stages) - 1; idx > last {
		idx = last
	}
	return idx
}

// MessageKind - тип сообщения личности.
type MessageKind string

const (
	MessageWelcome     MessageKind = "welcome"
	MessageAchievement MessageKind = "achievement"
	MessageChallenge   MessageKind = "challenge"
	MessageTip         MessageKind = "tip"
	MessageStreak      MessageKind = "streak"
)

// Personality - набор фраз помощника.
type Personality struct {
	Key         string                 `json:"key" yaml:"key"`
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description" yaml:"description"`
	Emoji       string                 `json:"emoji" yaml:"emoji"`
	Messages    map[MessageKind]string `json:"messages" yaml:"messages"`
}

// Message возвращает фразу с подставленной серией дней.
func (p Personality) Message(kind MessageKind, streak int) string {
	msg, ok := p.Messages[kind]
	if !ok {
		return ""
	}
	return strings.ReplaceAll(msg, "{streak}", strconv.Itoa(streak))
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Catalog отдаёт неизменяемые определения. Безопасен для конкурентного чтения.
// Отсутствующий ключ - ошибка NotFound со списком допустимых ключей.
type Catalog interface {
	Achievement(id string) (AchievementDefinition, error)
	Achievements() []AchievementDefinition

	ChallengeTemplate(key string) (ChallengeTemplate, error)
	ChallengeTemplates() []ChallengeTemplate

	LearningPath(id string) (LearningPathTemplate, error)
	LearningPaths() []LearningPathTemplate

	Personality(key string) (Personality, error)
	Personalities() []Personality
}
