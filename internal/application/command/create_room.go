package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ROOM COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateRoomCommand contains the data to create a room.
type CreateRoomCommand struct {
	UserID      string
	Name        string
	Description string
	Connections []string
}

// Validate validates the command.
func (c CreateRoomCommand) Validate() error {
	return requireUser("CreateRoom", c.UserID)
}

// CreateRoomResult contains the created room and the progression outcome.
type CreateRoomResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Room    *palace.Room `json:"room"`
	ProgressOutcome
}

// CreateRoomHandler handles CreateRoomCommand.
type CreateRoomHandler struct {
	palace   *palace.Service
	progress Progression
	clock    engine.Clock
	log      *logger.Logger
}

// NewCreateRoomHandler creates a new CreateRoomHandler.
func NewCreateRoomHandler(svc *palace.Service, progress Progression, clock engine.Clock, log *logger.Logger) *CreateRoomHandler {
	return &CreateRoomHandler{palace: svc, progress: progress, clock: clock, log: log}
}

// Handle creates the room and scores the action.
func (h *CreateRoomHandler) Handle(ctx context.Context, cmd CreateRoomCommand) (*CreateRoomResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result *CreateRoomResult
	err := h.progress.WithUserLock(ctx, cmd.UserID, func(ctx context.Context) error {
		room, err := h.palace.CreateRoom(ctx, cmd.UserID, cmd.Name, cmd.Description, cmd.Connections, h.clock.Now())
		if err != nil {
			return err
		}
		result = &CreateRoomResult{
			Success:         true,
			Message:         fmt.Sprintf("Room '%s' created successfully", room.Name),
			Room:            room,
			ProgressOutcome: evaluate(ctx, h.progress, h.log, cmd.UserID, engine.RoomCreated(room.Name)),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create_room: %w", err)
	}
	return result, nil
}
