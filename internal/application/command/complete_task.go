package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE TASK COMMAND
// Unlike palace commands, the task is the action itself: engine errors such
// as an unknown path or a repeated task are returned to the caller.
// ══════════════════════════════════════════════════════════════════════════════

// TaskEvaluator runs the engine for a standalone event.
type TaskEvaluator interface {
	Evaluate(ctx context.Context, userID string, ev engine.Event) (*engine.ProgressResult, error)
}

// CompleteTaskCommand marks a task of the current stage as done.
type CompleteTaskCommand struct {
	UserID string
	PathID string
	Task   string
}

// Validate validates the command.
func (c CompleteTaskCommand) Validate() error {
	if err := requireUser("CompleteTask", c.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(c.PathID) == "" || strings.TrimSpace(c.Task) == "" {
		return shared.NewDomainError("command", "CompleteTask", shared.ErrInvalidInput, "path_id and task are required")
	}
	return nil
}

// CompleteTaskResult contains the stage outcome and the full progress result.
type CompleteTaskResult struct {
	Success  bool                     `json:"success"`
	Stage    *progression.StageResult `json:"stage"`
	Progress *engine.ProgressResult   `json:"progress"`
}

// CompleteTaskHandler handles CompleteTaskCommand.
type CompleteTaskHandler struct {
	engine TaskEvaluator
}

// NewCompleteTaskHandler creates a new CompleteTaskHandler.
func NewCompleteTaskHandler(eng TaskEvaluator) *CompleteTaskHandler {
	return &CompleteTaskHandler{engine: eng}
}

// Handle records the task.
func (h *CompleteTaskHandler) Handle(ctx context.Context, cmd CompleteTaskCommand) (*CompleteTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res, err := h.engine.Evaluate(ctx, cmd.UserID, engine.TaskCompleted(strings.TrimSpace(cmd.PathID), strings.TrimSpace(cmd.Task)))
	if err != nil {
		return nil, fmt.Errorf("complete_task: %w", err)
	}
	return &CompleteTaskResult{Success: true, Stage: res.Stage, Progress: res}, nil
}
