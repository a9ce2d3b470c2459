package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TAKE JOURNEY COMMAND
// A journey updates LastAccessed, so it is a write even though it reads.
// ══════════════════════════════════════════════════════════════════════════════

// TakeJourneyCommand walks through a room.
type TakeJourneyCommand struct {
	UserID             string
	Room               string
	IncludeConnections bool
}

// TakeJourneyResult contains the journey and the progression outcome.
type TakeJourneyResult struct {
	*palace.Journey
	ProgressOutcome
}

// TakeJourneyHandler handles TakeJourneyCommand.
type TakeJourneyHandler struct {
	palace   *palace.Service
	progress Progression
	clock    engine.Clock
	log      *logger.Logger
}

// NewTakeJourneyHandler creates a new TakeJourneyHandler.
func NewTakeJourneyHandler(svc *palace.Service, progress Progression, clock engine.Clock, log *logger.Logger) *TakeJourneyHandler {
	return &TakeJourneyHandler{palace: svc, progress: progress, clock: clock, log: log}
}

// Handle walks the room and scores the visit.
func (h *TakeJourneyHandler) Handle(ctx context.Context, cmd TakeJourneyCommand) (*TakeJourneyResult, error) {
	if err := requireUser("TakeJourney", cmd.UserID); err != nil {
		return nil, err
	}

	var result *TakeJourneyResult
	err := h.progress.WithUserLock(ctx, cmd.UserID, func(ctx context.Context) error {
		journey, err := h.palace.Journey(ctx, cmd.UserID, cmd.Room, cmd.IncludeConnections, h.clock.Now())
		if err != nil {
			return err
		}
		result = &TakeJourneyResult{
			Journey:         journey,
			ProgressOutcome: evaluate(ctx, h.progress, h.log, cmd.UserID, engine.RoomVisited(journey.Room, journey.TotalMemories)),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("memory_journey: %w", err)
	}
	return result, nil
}
