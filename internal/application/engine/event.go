package engine

import (
	"fmt"

	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTION EVENTS
// What the user just did. One event per engine evaluation.
// ══════════════════════════════════════════════════════════════════════════════

// EventKind identifies a progression-relevant user action.
type EventKind string

const (
	// KindRoomCreated - a room was added to the palace.
	KindRoomCreated EventKind = "room_created"

	// KindMemoryStored - a memory was placed in a room.
	KindMemoryStored EventKind = "memory_stored"

	// KindRoomVisited - the user walked through a room.
	KindRoomVisited EventKind = "room_visited"

	// KindSearchPerformed - the user searched the palace.
	KindSearchPerformed EventKind = "search_performed"

	// KindTaskCompleted - the user reported a learning-path task as done.
	KindTaskCompleted EventKind = "task_completed"
)

// Event carries the action and the few facts about it the engine scores.
type Event struct {
	Kind EventKind

	// Room is informational; used in logs and domain events.
	Room string

	// MemoryStored
	VisualAnchorLength int
	KeywordCount       int

	// RoomVisited
	MemoriesVisited int

	// SearchPerformed
	ResultCount int

	// TaskCompleted
	PathID    string
	TaskLabel string
}

// RoomCreated builds a KindRoomCreated event.
func RoomCreated(room string) Event {
	return Event{Kind: KindRoomCreated, Room: room}
}

// MemoryStored builds a KindMemoryStored event.
func MemoryStored(room string, visualAnchorLength, keywordCount int) Event {
	return Event{
		Kind:               KindMemoryStored,
		Room:               room,
		VisualAnchorLength: visualAnchorLength,
		KeywordCount:       keywordCount,
	}
}

// RoomVisited builds a KindRoomVisited event.
func RoomVisited(room string, memoriesVisited int) Event {
	return Event{Kind: KindRoomVisited, Room: room, MemoriesVisited: memoriesVisited}
}

// SearchPerformed builds a KindSearchPerformed event.
func SearchPerformed(resultCount int) Event {
	return Event{Kind: KindSearchPerformed, ResultCount: resultCount}
}

// TaskCompleted builds a KindTaskCompleted event.
func TaskCompleted(pathID, taskLabel string) Event {
	return Event{Kind: KindTaskCompleted, PathID: pathID, TaskLabel: taskLabel}
}

// Validate checks the event before any state is touched.
func (e Event) Validate() error {
	switch e.Kind {
	case KindRoomCreated, KindMemoryStored, KindRoomVisited, KindSearchPerformed:
	case KindTaskCompleted:
		if e.PathID == "" || e.TaskLabel == "" {
			return shared.NewDomainError("engine", "Validate", shared.ErrInvalidInput, "path_id and task are required")
		}
	default:
		return shared.NewDomainError("engine", "Validate", shared.ErrInvalidInput, fmt.Sprintf("unknown event kind %q", e.Kind))
	}
	if e.VisualAnchorLength < 0 || e.KeywordCount < 0 || e.MemoriesVisited < 0 || e.ResultCount < 0 {
		return shared.NewDomainError("engine", "Validate", shared.ErrInvalidInput, "event counts cannot be negative")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BASE XP TABLE
// ══════════════════════════════════════════════════════════════════════════════

const (
	xpRoomCreated = 25

	xpMemoryStored      = 15
	xpVividAnchorBonus  = 10
	vividAnchorMinChars = 30
	xpKeywordBonus      = 5
	keywordBonusMin     = 3

	xpRoomVisited        = 10
	xpPerMemoryVisited   = 2
	memoriesVisitedLimit = 10

	xpSearchPerformed = 5
	xpSearchHitBonus  = 5
)

// BaseXP returns the XP an action earns by itself, before streak bonus,
// achievements and stage rewards.
func BaseXP(e Event) int {
	switch e.Kind {
	case KindRoomCreated:
		return xpRoomCreated
	case KindMemoryStored:
		xp := xpMemoryStored
		if e.VisualAnchorLength >= vividAnchorMinChars {
			xp += xpVividAnchorBonus
		}
		if e.KeywordCount >= keywordBonusMin {
			xp += xpKeywordBonus
		}
		return xp
	case KindRoomVisited:
		return xpRoomVisited + xpPerMemoryVisited*min(e.MemoriesVisited, memoriesVisitedLimit)
	case KindSearchPerformed:
		if e.ResultCount > 0 {
			return xpSearchPerformed + xpSearchHitBonus
		}
		return xpSearchPerformed
	default:
		return 0
	}
}

// evaluatesAchievements reports whether the action runs the achievement rules.
// Room creation only pays base XP; its achievement is reported with the next action.
func (e Event) evaluatesAchievements() bool {
	return e.Kind != KindRoomCreated
}

// mayGenerateChallenge reports whether the action can roll for a challenge.
func (e Event) mayGenerateChallenge() bool {
	return e.Kind == KindMemoryStored || e.Kind == KindRoomVisited
}

func (e Event) domainEventType() shared.EventType {
	switch e.Kind {
	case KindRoomCreated:
		return shared.EventRoomCreated
	case KindMemoryStored:
		return shared.EventMemoryStored
	case KindRoomVisited:
		return shared.EventJourneyTaken
	case KindSearchPerformed:
		return shared.EventSearchPerformed
	default:
		return ""
	}
}
