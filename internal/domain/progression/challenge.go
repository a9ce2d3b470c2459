package progression

import (
	"sort"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE INSTANCE
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeInstance - сгенерированное испытание.
// Завершение испытаний не реализовано: экземпляр живёт в статусе "активно".
type ChallengeInstance struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Room        string            `json:"room,omitempty"`
	Targets     []string          `json:"targets"`
	Difficulty  shared.Difficulty `json:"difficulty"`
	XPReward    int               `json:"xp_reward"`
	Completed   bool              `json:"completed"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RANDOMNESS & IDS
// ══════════════════════════════════════════════════════════════════════════════

// Rand - источник случайности. *rand.Rand удовлетворяет интерфейсу.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Perm(n int) []int
}

// IDGenerator выдаёт уникальные ID, не зависящие от точности часов.
type IDGenerator interface {
	NewID() string
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// challengeRule строит испытание из шаблона для выбранной комнаты.
// false означает "испытания нет" (недостаточно содержимого).
type challengeRule func(g *ChallengeGenerator, t ChallengeTemplate, p *UserProfile, s PalaceSnapshot, room RoomSnapshot) (*ChallengeInstance, bool)

var coreChallengeRules = map[string]challengeRule{
	ChallengeQuickRecall: quickRecallRule,
	ChallengeRoomMastery: roomMasteryRule,
}

var extendedChallengeRules = map[string]challengeRule{
	ChallengePositionRecall: positionRecallRule,
	ChallengeVisualAnchors:  visualAnchorsRule,
	ChallengePalaceTour:     palaceTourRule,
}

const (
	// RoomMasteryMinMemories - минимум воспоминаний для room_mastery.
	RoomMasteryMinMemories = 3

	// roomMasteryHardFrom - с этого числа воспоминаний room_mastery считается hard.
	roomMasteryHardFrom = 7

	// PalaceTourMinRooms - минимум заполненных комнат для palace_tour.
	PalaceTourMinRooms = 2

	// palaceTourHardFrom - с этого числа комнат palace_tour считается hard.
	palaceTourHardFrom = 5
)

// ChallengeGenerator создаёт не более одного испытания за вызов.
type ChallengeGenerator struct {
	catalog Catalog
	rnd     Rand
	ids     IDGenerator
	rules   map[string]challengeRule
}

// GeneratorOption настраивает ChallengeGenerator.
type GeneratorOption func(*ChallengeGenerator)

// WithExtendedChallenges подключает правила position_recall, visual_anchors, palace_tour.
// Без них в случайный выбор попадают только quick_recall и room_mastery.
func WithExtendedChallenges(enabled bool) GeneratorOption {
	return func(g *ChallengeGenerator) {
		rules := make(map[string]challengeRule, len(coreChallengeRules)+len(extendedChallengeRules))
		for k, r := range coreChallengeRules {
			rules[k] = r
		}
		if enabled {
			for k, r := range extendedChallengeRules {
				rules[k] = r
			}
		}
		g.rules = rules
	}
}

// NewChallengeGenerator создаёт генератор испытаний.
func NewChallengeGenerator(catalog Catalog, rnd Rand, ids IDGenerator, opts ...GeneratorOption) *ChallengeGenerator {
	g := &ChallengeGenerator{
		catalog: catalog,
		rnd:     rnd,
		ids:     ids,
		rules:   coreChallengeRules,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Pool возвращает шаблоны, участвующие в случайном выборе, по ключу.
// Шаблоны без правила генерации в пул не попадают.
func (g *ChallengeGenerator) Pool() []ChallengeTemplate {
	var pool []ChallengeTemplate
	for _, t := range g.catalog.ChallengeTemplates() {
		if _, ok := g.rules[t.Key]; ok {
			pool = append(pool, t)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].Key < pool[j].Key })
	return pool
}

// Generate выбирает тип испытания и заполненную комнату равновероятно.
// Возвращает nil без ошибки, если содержимого не хватает.
func (g *ChallengeGenerator) Generate(p *UserProfile, s PalaceSnapshot, now time.Time) (*ChallengeInstance, error) {
	if s.RoomCount == 0 || s.MemoryCount == 0 {
		return nil, nil
	}
	valid := s.ValidRooms()
	if len(valid) == 0 {
		return nil, nil
	}

	pool := g.Pool()
	if len(pool) == 0 {
		return nil, nil
	}

	tmpl := pool[g.rnd.Intn(len(pool))]
	room := valid[g.rnd.Intn(len(valid))]

	challenge, ok := g.rules[tmpl.Key](g, tmpl, p, s, room)
	if !ok {
		return nil, nil
	}

	challenge.ID = g.ids.NewID()
	challenge.UserID = p.ID
	challenge.Type = tmpl.Key
	challenge.Name = tmpl.Name
	challenge.CreatedAt = now
	return challenge, nil
}

// sample выбирает count воспоминаний без повторов.
func (g *ChallengeGenerator) sample(memories []MemorySnapshot, count int) []string {
	perm := g.rnd.Perm(len(memories))
	targets := make([]string, 0, count)
	for _, idx := range perm[:count] {
		targets = append(targets, memories[idx].ID)
	}
	return targets
}

// sampledByLevel - общая логика quick_recall, position_recall, visual_anchors:
// сложность по уровню, число целей ограничено доступными воспоминаниями.
func (g *ChallengeGenerator) sampledByLevel(t ChallengeTemplate, p *UserProfile, room RoomSnapshot, memories []MemorySnapshot) (*ChallengeInstance, bool) {
	difficulty := shared.DifficultyForLevel(p.Level)
	lvl, ok := t.Level(difficulty)
	if !ok {
		return nil, false
	}

	count := lvl.Count
	if len(memories) < count {
		count = len(memories)
	}
	if count == 0 {
		return nil, false
	}

	return &ChallengeInstance{
		Description: t.Describe(count, room.Name),
		Room:        room.Name,
		Targets:     g.sample(memories, count),
		Difficulty:  difficulty,
		XPReward:    lvl.XPReward,
	}, true
}

func quickRecallRule(g *ChallengeGenerator, t ChallengeTemplate, p *UserProfile, _ PalaceSnapshot, room RoomSnapshot) (*ChallengeInstance, bool) {
	return g.sampledByLevel(t, p, room, room.Memories)
}

func positionRecallRule(g *ChallengeGenerator, t ChallengeTemplate, p *UserProfile, _ PalaceSnapshot, room RoomSnapshot) (*ChallengeInstance, bool) {
	return g.sampledByLevel(t, p, room, room.Memories)
}

func visualAnchorsRule(g *ChallengeGenerator, t ChallengeTemplate, p *UserProfile, _ PalaceSnapshot, room RoomSnapshot) (*ChallengeInstance, bool) {
	anchored := make([]MemorySnapshot, 0, len(room.Memories))
	for _, m := range room.Memories {
		if m.HasVisualAnchor {
			anchored = append(anchored, m)
		}
	}
	return g.sampledByLevel(t, p, room, anchored)
}

func roomMasteryRule(_ *ChallengeGenerator, t ChallengeTemplate, _ *UserProfile, _ PalaceSnapshot, room RoomSnapshot) (*ChallengeInstance, bool) {
	n := len(room.Memories)
	if n < RoomMasteryMinMemories {
		return nil, false
	}

	difficulty := shared.DifficultyMedium
	if n >= roomMasteryHardFrom {
		difficulty = shared.DifficultyHard
	}

	targets := make([]string, 0, n)
	for _, m := range room.Memories {
		targets = append(targets, m.ID)
	}

	return &ChallengeInstance{
		Description: t.Describe(n, room.Name),
		Room:        room.Name,
		Targets:     targets,
		Difficulty:  difficulty,
		XPReward:    t.XPReward,
	}, true
}

// palaceTourRule - первая по позиции память каждой заполненной комнаты.
func palaceTourRule(_ *ChallengeGenerator, t ChallengeTemplate, _ *UserProfile, s PalaceSnapshot, _ RoomSnapshot) (*ChallengeInstance, bool) {
	valid := s.ValidRooms()
	if len(valid) < PalaceTourMinRooms {
		return nil, false
	}

	difficulty := shared.DifficultyMedium
	if len(valid) >= palaceTourHardFrom {
		difficulty = shared.DifficultyHard
	}

	targets := make([]string, 0, len(valid))
	for _, r := range valid {
		targets = append(targets, r.Memories[0].ID)
	}

	return &ChallengeInstance{
		Description: t.Describe(len(valid), ""),
		Targets:     targets,
		Difficulty:  difficulty,
		XPReward:    t.XPReward,
	}, true
}
