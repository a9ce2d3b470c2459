package progression

import (
	"math"

	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVELING POLICY
// ══════════════════════════════════════════════════════════════════════════════

// ThresholdMultiplier - рост порога уровня.
const ThresholdMultiplier = 1.5

// LevelResult - итог начисления опыта.
// Несколько пересечённых порогов сворачиваются в один результат.
type LevelResult struct {
	XPGained  int  `json:"xp_gained"`
	LeveledUp bool `json:"leveled_up"`
	NewLevel  int  `json:"new_level"`
}

// LevelingPolicy переводит прирост опыта в состояние уровня.
type LevelingPolicy struct {
	multiplier float64
}

// NewLevelingPolicy создаёт политику уровней.
func NewLevelingPolicy() *LevelingPolicy {
	return &LevelingPolicy{multiplier: ThresholdMultiplier}
}

// AddXP начисляет опыт. Отрицательная сумма - ErrNegativeXP без мутации.
func (lp *LevelingPolicy) AddXP(p *UserProfile, amount int) (LevelResult, error) {
	if amount < 0 {
		return LevelResult{NewLevel: p.Level}, shared.ErrNegativeXP
	}

	result := LevelResult{XPGained: amount}
	p.XP += amount
	p.TotalXPEarned += amount

	for p.XP >= p.XPToNextLevel {
		p.XP -= p.XPToNextLevel
		p.Level++
		p.XPToNextLevel = lp.nextThreshold(p.XPToNextLevel)
		result.LeveledUp = true
	}

	result.NewLevel = p.Level
	return result, nil
}

// nextThreshold умножает порог и округляет вниз. Порог не убывает и не меньше 1.
func (lp *LevelingPolicy) nextThreshold(current int) int {
	next := int(math.Floor(float64(current) * lp.multiplier))
	if next < current {
		next = current
	}
	if next < 1 {
		next = 1
	}
	return next
}
