package progression

import (
	"time"

	"github.com/alem-hub/memory-palace/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER (Серия активных дней)
// ══════════════════════════════════════════════════════════════════════════════

const (
	// StreakBonusPerDay - бонус за каждый день серии.
	StreakBonusPerDay = 5

	// StreakBonusCapDays - после этого числа дней бонус не растёт.
	StreakBonusCapDays = 10
)

// StreakResult - итог обновления серии.
type StreakResult struct {
	// Updated - серия изменилась (продлена или сброшена).
	Updated bool `json:"updated"`

	// Days - серия после обновления.
	Days int `json:"days"`

	// Bonus - бонусный опыт; начисляет вызывающая сторона.
	Bonus int `json:"bonus"`

	// Broken - серия была сброшена.
	Broken bool `json:"broken"`

	// PreviousDays - серия до сброса.
	PreviousDays int `json:"previous_days,omitempty"`

	// DaysMissed - сколько дней пропущено (только при сбросе).
	DaysMissed int `json:"days_missed,omitempty"`

	// ClockSkew - действие датировано раньше последнего обновления.
	ClockSkew bool `json:"clock_skew,omitempty"`
}

// StreakTracker считает серию по календарным дням в заданной зоне.
type StreakTracker struct {
	loc *time.Location
}

// NewStreakTracker создаёт трекер. nil означает UTC.
func NewStreakTracker(loc *time.Location) *StreakTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakTracker{loc: loc}
}

// UpdateStreak обновляет серию профиля на момент now.
//
// Разница 0 дней - без изменений; 1 день - серия +1 и бонус;
// больше - сброс на 1. Отрицательная разница (часы пошли назад)
// считается нулевой, профиль не трогается, выставляется ClockSkew.
func (st *StreakTracker) UpdateStreak(p *UserProfile, now time.Time) StreakResult {
	daysDiff := timeutil.DaysBetween(p.StreakLastUpdated, now, st.loc)

	switch {
	case daysDiff < 0:
		return StreakResult{Days: p.StreakDays, ClockSkew: true}

	case daysDiff == 0:
		p.StreakLastUpdated = now
		return StreakResult{Days: p.StreakDays}

	case daysDiff == 1:
		p.StreakDays++
		p.StreakLastUpdated = now
		return StreakResult{
			Updated: true,
			Days:    p.StreakDays,
			Bonus:   streakBonus(p.StreakDays),
		}

	default:
		previous := p.StreakDays
		p.StreakDays = 1
		p.StreakLastUpdated = now
		return StreakResult{
			Updated:      true,
			Days:         1,
			Broken:       true,
			PreviousDays: previous,
			DaysMissed:   daysDiff - 1,
		}
	}
}

func streakBonus(days int) int {
	if days > StreakBonusCapDays {
		days = StreakBonusCapDays
	}
	return days * StreakBonusPerDay
}
