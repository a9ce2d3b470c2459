package palace

import (
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SPACED REPETITION
// Расписание только вычисляется; напоминания никто не отправляет.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultReviewIntervals - интервалы повторения в днях от создания воспоминания.
var DefaultReviewIntervals = []int{1, 3, 7, 14, 30, 90, 180}

// ReviewItem - расписание повторения одного воспоминания.
type ReviewItem struct {
	LocationID    string     `json:"location_id"`
	Room          string     `json:"room"`
	Content       string     `json:"content"`
	ReviewsPassed int        `json:"reviews_passed"`
	LastDue       *time.Time `json:"last_due,omitempty"`
	NextReview    *time.Time `json:"next_review,omitempty"`
	IntervalDays  int        `json:"interval_days,omitempty"`
	Due           bool       `json:"due"`
	Mastered      bool       `json:"mastered"`
}

// Schedule считает расписание повторения.
//
// Точки повторения - CreatedAt + interval дней. Воспоминание "к повторению",
// если последняя прошедшая точка позже последнего обращения.
func Schedule(locs []*Location, intervals []int, now time.Time) []ReviewItem {
	if len(intervals) == 0 {
		intervals = DefaultReviewIntervals
	}

	items := make([]ReviewItem, 0, len(locs))
	for _, loc := range locs {
		item := ReviewItem{
			LocationID: loc.ID,
			Room:       loc.Room,
			Content:    loc.Content,
		}

		for _, days := range intervals {
			point := loc.CreatedAt.AddDate(0, 0, days)
			if !point.After(now) {
				p := point
				item.LastDue = &p
				item.ReviewsPassed++
				continue
			}
			p := point
			item.NextReview = &p
			item.IntervalDays = days
			break
		}

		item.Mastered = item.NextReview == nil
		item.Due = item.LastDue != nil && loc.LastAccessed.Before(*item.LastDue)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Due != items[j].Due {
			return items[i].Due
		}
		a, b := items[i].NextReview, items[j].NextReview
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	return items
}
