package command

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE MEMORY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// StoreMemoryCommand places a memory in an existing room.
type StoreMemoryCommand struct {
	UserID       string
	Room         string
	Content      string
	VisualAnchor string
	Position     shared.Position
	Keywords     []string
}

// Validate validates the command.
func (c StoreMemoryCommand) Validate() error {
	return requireUser("StoreMemory", c.UserID)
}

// StoreMemoryResult contains the stored memory and the progression outcome.
type StoreMemoryResult struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	LocationID string           `json:"location_id"`
	Location   *palace.Location `json:"location"`
	ProgressOutcome
}

// StoreMemoryHandler handles StoreMemoryCommand.
type StoreMemoryHandler struct {
	palace   *palace.Service
	progress Progression
	clock    engine.Clock
	log      *logger.Logger
}

// NewStoreMemoryHandler creates a new StoreMemoryHandler.
func NewStoreMemoryHandler(svc *palace.Service, progress Progression, clock engine.Clock, log *logger.Logger) *StoreMemoryHandler {
	return &StoreMemoryHandler{palace: svc, progress: progress, clock: clock, log: log}
}

// Handle stores the memory and scores the action.
func (h *StoreMemoryHandler) Handle(ctx context.Context, cmd StoreMemoryCommand) (*StoreMemoryResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result *StoreMemoryResult
	err := h.progress.WithUserLock(ctx, cmd.UserID, func(ctx context.Context) error {
		loc, err := h.palace.StoreMemory(ctx, palace.NewLocationParams{
			UserID:       cmd.UserID,
			Room:         cmd.Room,
			Content:      cmd.Content,
			VisualAnchor: cmd.VisualAnchor,
			Position:     cmd.Position,
			Keywords:     cmd.Keywords,
		}, h.clock.Now())
		if err != nil {
			return err
		}

		ev := engine.MemoryStored(loc.Room, utf8.RuneCountInString(loc.VisualAnchor), len(loc.Keywords))
		result = &StoreMemoryResult{
			Success:         true,
			Message:         fmt.Sprintf("Memory stored in '%s' at position %s", loc.Room, loc.Position),
			LocationID:      loc.ID,
			Location:        loc,
			ProgressOutcome: evaluate(ctx, h.progress, h.log, cmd.UserID, ev),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store_memory: %w", err)
	}
	return result, nil
}
