// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that happened
// to a user's palace or progression state.
const (
	// Palace events
	EventRoomCreated     EventType = "palace.room_created"
	EventMemoryStored    EventType = "palace.memory_stored"
	EventJourneyTaken    EventType = "palace.journey_taken"
	EventSearchPerformed EventType = "palace.search_performed"

	// Progress events
	EventXPGained           EventType = "progress.xp_gained"
	EventLevelUp            EventType = "progress.level_up"
	EventDailyStreakUpdated EventType = "progress.streak_updated"
	EventDailyStreakBroken  EventType = "progress.streak_broken"
	EventClockSkew          EventType = "progress.clock_skew"
	EventAchievementUnlock  EventType = "progress.achievement_unlocked"
	EventChallengeCreated   EventType = "progress.challenge_generated"
	EventStageCompleted     EventType = "progress.stage_completed"
	EventPathCompleted      EventType = "progress.path_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the action time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted once per action with the total XP the action earned.
type XPGainedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // action kind, e.g. "memory_stored"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, newTotal int, source string, at time.Time) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID, at),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when a user crosses one or more level thresholds.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// DailyStreakUpdatedEvent is emitted when a streak is extended by one day.
type DailyStreakUpdatedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Days   int    `json:"days"`
	Bonus  int    `json:"bonus"`
}

// Payload implements Event interface.
func (e DailyStreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"days":    e.Days,
		"bonus":   e.Bonus,
	}
}

// NewDailyStreakUpdatedEvent creates a new DailyStreakUpdatedEvent.
func NewDailyStreakUpdatedEvent(userID string, days, bonus int, at time.Time) DailyStreakUpdatedEvent {
	return DailyStreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventDailyStreakUpdated, userID, at),
		UserID:    userID,
		Days:      days,
		Bonus:     bonus,
	}
}

// DailyStreakBrokenEvent is emitted when a user's daily streak is broken.
type DailyStreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e DailyStreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewDailyStreakBrokenEvent creates a new DailyStreakBrokenEvent.
func NewDailyStreakBrokenEvent(userID string, previousStreak, daysMissed int, at time.Time) DailyStreakBrokenEvent {
	return DailyStreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventDailyStreakBroken, userID, at),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ClockSkewEvent is emitted when an action is dated before the last streak update.
type ClockSkewEvent struct {
	BaseEvent
	UserID      string    `json:"user_id"`
	LastUpdated time.Time `json:"last_updated"`
	Now         time.Time `json:"now"`
}

// Payload implements Event interface.
func (e ClockSkewEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"last_updated": e.LastUpdated.Format(time.RFC3339),
		"now":          e.Now.Format(time.RFC3339),
	}
}

// NewClockSkewEvent creates a new ClockSkewEvent.
func NewClockSkewEvent(userID string, lastUpdated, now time.Time) ClockSkewEvent {
	return ClockSkewEvent{
		BaseEvent:   NewBaseEvent(EventClockSkew, userID, now),
		UserID:      userID,
		LastUpdated: lastUpdated,
		Now:         now,
	}
}

// AchievementUnlockedEvent is emitted for every newly unlocked achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	XPReward      int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"xp_reward":      e.XPReward,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID string, xpReward int, at time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlock, userID, at),
		UserID:        userID,
		AchievementID: achievementID,
		XPReward:      xpReward,
	}
}

// ChallengeGeneratedEvent is emitted when a new challenge becomes active.
type ChallengeGeneratedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	ChallengeID string `json:"challenge_id"`
	Type        string `json:"type"`
	Difficulty  string `json:"difficulty"`
}

// Payload implements Event interface.
func (e ChallengeGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"challenge_id": e.ChallengeID,
		"type":         e.Type,
		"difficulty":   e.Difficulty,
	}
}

// NewChallengeGeneratedEvent creates a new ChallengeGeneratedEvent.
func NewChallengeGeneratedEvent(userID, challengeID, challengeType, difficulty string, at time.Time) ChallengeGeneratedEvent {
	return ChallengeGeneratedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCreated, userID, at),
		UserID:      userID,
		ChallengeID: challengeID,
		Type:        challengeType,
		Difficulty:  difficulty,
	}
}

// StageCompletedEvent is emitted when a learning-path stage is finished.
// PathComplete marks the terminal stage.
type StageCompletedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	PathID       string `json:"path_id"`
	Stage        string `json:"stage"`
	XPEarned     int    `json:"xp_earned"`
	PathComplete bool   `json:"path_complete"`
}

// Payload implements Event interface.
func (e StageCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"path_id":       e.PathID,
		"stage":         e.Stage,
		"xp_earned":     e.XPEarned,
		"path_complete": e.PathComplete,
	}
}

// NewStageCompletedEvent creates a new StageCompletedEvent.
func NewStageCompletedEvent(userID, pathID, stage string, xpEarned int, pathComplete bool, at time.Time) StageCompletedEvent {
	eventType := EventStageCompleted
	if pathComplete {
		eventType = EventPathCompleted
	}
	return StageCompletedEvent{
		BaseEvent:    NewBaseEvent(eventType, userID, at),
		UserID:       userID,
		PathID:       pathID,
		Stage:        stage,
		XPEarned:     xpEarned,
		PathComplete: pathComplete,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Palace Events
// ═══════════════════════════════════════════════════════════════════════════

// PalaceActionEvent is emitted after a palace action succeeded.
type PalaceActionEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Room   string `json:"room,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Payload implements Event interface.
func (e PalaceActionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"room":    e.Room,
		"detail":  e.Detail,
	}
}

// NewPalaceActionEvent creates a new PalaceActionEvent.
func NewPalaceActionEvent(eventType EventType, userID, room, detail string, at time.Time) PalaceActionEvent {
	return PalaceActionEvent{
		BaseEvent: NewBaseEvent(eventType, userID, at),
		UserID:    userID,
		Room:      room,
		Detail:    detail,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
