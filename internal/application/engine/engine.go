// Package engine composes the progression domain into one operation that
// runs after every palace action: streak, base XP, achievements, challenges
// and learning paths, persisted with a single save.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Locker serializes work per key. The returned func releases the lock.
// The returned context is cancelled when the lock is released or lost, so
// work done under it stops before another holder can take over.
// Implemented by memory.KeyedLocker and redis.Locker.
type Locker interface {
	Lock(ctx context.Context, key string) (context.Context, func(), error)
}

// SnapshotSource reports the user's palace after the action.
// Implemented by palace.Service.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID string) (progression.PalaceSnapshot, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// Deps are the collaborators of the engine.
type Deps struct {
	Profiles  progression.ProfileStore
	Palace    SnapshotSource
	Catalog   progression.Catalog
	Locker    Locker
	Publisher shared.EventPublisher
	Rand      progression.Rand
	IDs       progression.IDGenerator
	Clock     Clock
	Logger    *logger.Logger
}

// Config tunes the engine.
type Config struct {
	// ChallengeChance is the probability that an eligible action produces a challenge.
	ChallengeChance float64

	// ChallengesEnabled turns challenge generation on.
	ChallengesEnabled bool

	// ExtendedChallenges adds visual_anchors, position_recall and palace_tour to the pool.
	ExtendedChallenges bool

	// ActivityAchievements wires first_search, memory_journey and connected_rooms.
	ActivityAchievements bool

	// PersonalityMessages adds a personality line to results.
	PersonalityMessages bool

	// Location defines calendar days for streaks. nil means UTC.
	Location *time.Location
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		ChallengeChance:     0.3,
		ChallengesEnabled:   true,
		PersonalityMessages: true,
		Location:            time.UTC,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionEngine runs the progression pipeline for one user action.
type ProgressionEngine struct {
	profiles  progression.ProfileStore
	palace    SnapshotSource
	catalog   progression.Catalog
	locker    Locker
	publisher shared.EventPublisher
	rnd       progression.Rand
	clock     Clock
	log       *logger.Logger
	cfg       Config

	leveling     *progression.LevelingPolicy
	streak       *progression.StreakTracker
	achievements *progression.AchievementEvaluator
	challenges   *progression.ChallengeGenerator
	paths        *progression.LearningPathTracker
}

// New creates a ProgressionEngine. Profiles, Palace, Catalog, Locker, Rand and
// IDs are required; Publisher, Clock and Logger have defaults.
func New(deps Deps, cfg Config) *ProgressionEngine {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	rnd := &lockedRand{r: deps.Rand}
	leveling := progression.NewLevelingPolicy()

	return &ProgressionEngine{
		profiles:  deps.Profiles,
		palace:    deps.Palace,
		catalog:   deps.Catalog,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		rnd:       rnd,
		clock:     deps.Clock,
		log:       deps.Logger.With(logger.Component("engine")),
		cfg:       cfg,

		leveling: leveling,
		streak:   progression.NewStreakTracker(cfg.Location),
		achievements: progression.NewAchievementEvaluator(deps.Catalog, leveling,
			progression.WithActivityRules(cfg.ActivityAchievements)),
		challenges: progression.NewChallengeGenerator(deps.Catalog, rnd, deps.IDs,
			progression.WithExtendedChallenges(cfg.ExtendedChallenges)),
		paths: progression.NewLearningPathTracker(deps.Catalog, leveling),
	}
}

// LockKey is the lock key for a user's progression state.
func LockKey(userID string) string {
	return "user:" + userID
}

// WithUserLock runs fn while holding the user's lock. Palace commands use it
// so the action and its evaluation are serialized together.
func (e *ProgressionEngine) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	held, unlock, err := e.locker.Lock(ctx, LockKey(userID))
	if err != nil {
		return err
	}
	defer unlock()

	if err := fn(held); err != nil {
		if cause := context.Cause(held); cause != nil && ctx.Err() == nil && !errors.Is(err, cause) {
			return fmt.Errorf("%w: %w", cause, err)
		}
		return err
	}
	return nil
}

// Evaluate locks the user and runs the pipeline for ev.
func (e *ProgressionEngine) Evaluate(ctx context.Context, userID string, ev Event) (*ProgressResult, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	var result *ProgressResult
	err := e.WithUserLock(ctx, userID, func(ctx context.Context) error {
		var err error
		result, err = e.EvaluateLocked(ctx, userID, ev)
		return err
	})
	return result, err
}

// EvaluateLocked runs the pipeline for ev. The caller must hold the user's lock.
//
// All mutations are applied to one copy of the profile and persisted with a
// single save; any error before the save leaves stored state untouched.
func (e *ProgressionEngine) EvaluateLocked(ctx context.Context, userID string, ev Event) (*ProgressResult, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	now := e.clock.Now()

	p, isNew, err := e.loadOrCreate(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	snap, err := e.palace.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("engine: palace snapshot: %w", err)
	}

	startLevel := p.Level
	startTotal := p.TotalXPEarned
	result := &ProgressResult{
		UserID:       userID,
		Event:        ev.Kind,
		NewProfile:   isNew,
		Achievements: make([]AchievementView, 0),
	}
	var events []shared.Event

	// Streak
	streak := e.streak.UpdateStreak(p, now)
	switch {
	case streak.ClockSkew:
		e.log.Warn("clock moved backwards, streak left unchanged",
			logger.UserID(userID), logger.Time("streak_last_updated", p.StreakLastUpdated), logger.Time("now", now))
		events = append(events, shared.NewClockSkewEvent(userID, p.StreakLastUpdated, now))
	case streak.Broken:
		result.StreakBroken = true
		result.PreviousStreak = streak.PreviousDays
		events = append(events, shared.NewDailyStreakBrokenEvent(userID, streak.PreviousDays, streak.DaysMissed, now))
	case streak.Updated:
		events = append(events, shared.NewDailyStreakUpdatedEvent(userID, streak.Days, streak.Bonus, now))
	}
	if streak.Bonus > 0 {
		if _, err := e.leveling.AddXP(p, streak.Bonus); err != nil {
			return nil, fmt.Errorf("engine: streak bonus: %w", err)
		}
		result.StreakBonus = streak.Bonus
	}

	// Base XP
	result.BaseXP = BaseXP(ev)
	if _, err := e.leveling.AddXP(p, result.BaseXP); err != nil {
		return nil, fmt.Errorf("engine: base xp: %w", err)
	}

	// Counters
	p.TotalRooms = snap.RoomCount
	p.TotalMemories = snap.MemoryCount
	switch ev.Kind {
	case KindRoomVisited:
		p.JourneysTaken++
	case KindSearchPerformed:
		if ev.ResultCount > 0 {
			p.SearchesWithResults++
		}
	}

	// Achievements
	if ev.evaluatesAchievements() {
		unlocked, err := e.achievements.Evaluate(p, snap, now)
		if err != nil {
			return nil, fmt.Errorf("engine: achievements: %w", err)
		}
		for _, u := range unlocked {
			result.Achievements = append(result.Achievements, viewOfAchievement(u.Definition))
			events = append(events, shared.NewAchievementUnlockedEvent(userID, u.Definition.ID, u.Definition.XPReward, now))
		}
	}

	// Challenge
	var created []progression.ChallengeInstance
	if e.cfg.ChallengesEnabled && ev.mayGenerateChallenge() && e.rnd.Float64() < e.cfg.ChallengeChance {
		ch, err := e.challenges.Generate(p, snap, now)
		if err != nil {
			return nil, fmt.Errorf("engine: challenge: %w", err)
		}
		if ch != nil {
			p.AddActiveChallenge(ch.ID)
			created = append(created, *ch)
			result.Challenge = viewOfChallenge(ch)
			events = append(events, shared.NewChallengeGeneratedEvent(userID, ch.ID, ch.Type, string(ch.Difficulty), now))
		}
	}

	// Learning path
	if ev.Kind == KindTaskCompleted {
		stage, err := e.paths.AdvanceTask(p, ev.PathID, ev.TaskLabel)
		if err != nil {
			return nil, err
		}
		result.Stage = &stage
		if stage.StageComplete {
			events = append(events, shared.NewStageCompletedEvent(userID, stage.PathID, stage.CompletedStage, stage.XPEarned, stage.PathComplete, now))
		}
	}

	p.Touch(now)
	if err := e.save(ctx, p, created...); err != nil {
		return nil, err
	}

	result.XPGained = p.TotalXPEarned - startTotal
	result.Progress = SnapshotOf(p)
	if p.Level > startLevel {
		result.LevelUp = &LevelUp{OldLevel: startLevel, NewLevel: p.Level, Title: shared.LevelTitle(p.Level)}
		events = append(events, shared.NewLevelUpEvent(userID, startLevel, p.Level, now))
	}
	if result.XPGained > 0 {
		events = append(events, shared.NewXPGainedEvent(userID, result.XPGained, p.TotalXPEarned, string(ev.Kind), now))
	}
	if t := ev.domainEventType(); t != "" {
		events = append([]shared.Event{shared.NewPalaceActionEvent(t, userID, ev.Room, string(ev.Kind), now)}, events...)
	}
	result.Message = e.message(p, result, streak)

	e.publish(events)

	e.log.Debug("progress evaluated",
		logger.UserID(userID),
		logger.String("event", string(ev.Kind)),
		logger.XPAmount(result.XPGained),
		logger.Int("achievements", len(result.Achievements)),
		logger.Bool("challenge", result.Challenge != nil),
		logger.Latency(time.Since(started)),
	)
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Profile returns the user's profile, creating it on first reference.
func (e *ProgressionEngine) Profile(ctx context.Context, userID string) (*progression.UserProfile, error) {
	var out *progression.UserProfile
	err := e.WithUserLock(ctx, userID, func(ctx context.Context) error {
		p, isNew, err := e.loadOrCreate(ctx, userID, e.clock.Now())
		if err != nil {
			return err
		}
		if isNew {
			if err := e.save(ctx, p); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	return out, err
}

// SetPersonality switches the user's guide. Unknown keys fail with
// ErrPersonalityNotFound listing the valid keys.
func (e *ProgressionEngine) SetPersonality(ctx context.Context, userID, key string) (progression.Personality, error) {
	personality, err := e.catalog.Personality(key)
	if err != nil {
		return progression.Personality{}, err
	}

	err = e.WithUserLock(ctx, userID, func(ctx context.Context) error {
		now := e.clock.Now()
		p, _, err := e.loadOrCreate(ctx, userID, now)
		if err != nil {
			return err
		}
		p.Personality = personality.Key
		p.Touch(now)
		if err := e.save(ctx, p); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return progression.Personality{}, err
	}
	return personality, nil
}

// StartPathResult reports the state of a path after StartPath.
type StartPathResult struct {
	Path         progression.LearningPathTemplate `json:"path"`
	Started      bool                             `json:"started"`
	Progress     float64                          `json:"progress"`
	CurrentStage progression.Stage                `json:"current_stage"`
	StageIndex   int                              `json:"stage_index"`
}

// StartPath records progress 0 for the path if it is not started yet.
func (e *ProgressionEngine) StartPath(ctx context.Context, userID, pathID string) (*StartPathResult, error) {
	var out *StartPathResult
	err := e.WithUserLock(ctx, userID, func(ctx context.Context) error {
		now := e.clock.Now()
		p, isNew, err := e.loadOrCreate(ctx, userID, now)
		if err != nil {
			return err
		}
		path, started, err := e.paths.Start(p, pathID)
		if err != nil {
			return err
		}
		stage, idx, err := e.paths.CurrentStage(p, pathID)
		if err != nil {
			return err
		}
		if started || isNew {
			p.Touch(now)
			if err := e.save(ctx, p); err != nil {
				return err
			}
		}
		out = &StartPathResult{
			Path:         path,
			Started:      started,
			Progress:     p.LearningPaths[pathID],
			CurrentStage: stage,
			StageIndex:   idx,
		}
		return nil
	})
	return out, err
}

// ActiveChallenges returns the user's challenges that are not completed, newest first.
func (e *ProgressionEngine) ActiveChallenges(ctx context.Context, userID string) ([]progression.ChallengeInstance, error) {
	list, err := e.profiles.ListChallenges(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("engine: list challenges: %w", err)
	}
	return list, nil
}

// AchievementRules returns the IDs of achievements the engine can award.
func (e *ProgressionEngine) AchievementRules() []string {
	return e.achievements.RuleIDs()
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// loadOrCreate returns a private copy of the stored profile, or a fresh
// profile with a random personality when none exists yet.
func (e *ProgressionEngine) loadOrCreate(ctx context.Context, userID string, now time.Time) (*progression.UserProfile, bool, error) {
	p, err := e.profiles.GetProfile(ctx, userID)
	if err == nil {
		p = p.Clone()
		return p, false, nil
	}
	if !shared.IsNotFound(err) {
		return nil, false, fmt.Errorf("engine: load profile: %w", err)
	}

	personalities := e.catalog.Personalities()
	key := ""
	if len(personalities) > 0 {
		key = personalities[e.rnd.Intn(len(personalities))].Key
	}
	e.log.Info("creating profile", logger.UserID(userID), logger.String("personality", key))
	return progression.NewUserProfile(userID, key, now), true, nil
}

// message picks one personality line: welcome for a new profile, then
// achievement, challenge and streak in that order.
func (e *ProgressionEngine) message(p *progression.UserProfile, r *ProgressResult, streak progression.StreakResult) string {
	if !e.cfg.PersonalityMessages {
		return ""
	}
	personality, err := e.catalog.Personality(p.Personality)
	if err != nil {
		return ""
	}

	var kind progression.MessageKind
	switch {
	case r.NewProfile:
		kind = progression.MessageWelcome
	case len(r.Achievements) > 0:
		kind = progression.MessageAchievement
	case r.Challenge != nil:
		kind = progression.MessageChallenge
	case streak.Updated && !streak.Broken:
		kind = progression.MessageStreak
	default:
		return ""
	}
	return personality.Message(kind, p.StreakDays)
}

// save persists p unless the lock context is already done. A lost lock means
// another holder may have loaded the profile, so nothing is written.
func (e *ProgressionEngine) save(ctx context.Context, p *progression.UserProfile, created ...progression.ChallengeInstance) error {
	if err := context.Cause(ctx); err != nil {
		return fmt.Errorf("engine: save profile: %w", err)
	}
	if err := e.profiles.SaveProfile(ctx, p, created...); err != nil {
		return fmt.Errorf("engine: save profile: %w", err)
	}
	return nil
}

func (e *ProgressionEngine) publish(events []shared.Event) {
	if e.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := e.publisher.Publish(ev); err != nil {
			e.log.Warn("failed to publish event", logger.String("event_type", string(ev.EventType())), logger.Err(err))
		}
	}
}

// lockedRand guards a Rand shared across concurrent users.
type lockedRand struct {
	mu sync.Mutex
	r  progression.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Perm(n int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Perm(n)
}
