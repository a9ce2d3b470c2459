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
// PROFILE SETTINGS COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// ProfileSettings is the part of the engine that changes profile settings.
type ProfileSettings interface {
	SetPersonality(ctx context.Context, userID, key string) (progression.Personality, error)
	StartPath(ctx context.Context, userID, pathID string) (*engine.StartPathResult, error)
}

// SetPersonalityCommand switches the user's guide.
type SetPersonalityCommand struct {
	UserID      string
	Personality string
}

// SetPersonalityResult is the confirmation shown to the user.
type SetPersonalityResult struct {
	Success     bool                    `json:"success"`
	Message     string                  `json:"message"`
	Personality progression.Personality `json:"personality"`
}

// SetPersonalityHandler handles SetPersonalityCommand.
type SetPersonalityHandler struct {
	settings ProfileSettings
}

// NewSetPersonalityHandler creates a new SetPersonalityHandler.
func NewSetPersonalityHandler(settings ProfileSettings) *SetPersonalityHandler {
	return &SetPersonalityHandler{settings: settings}
}

// Handle applies the personality. Unknown keys return the valid keys as error options.
func (h *SetPersonalityHandler) Handle(ctx context.Context, cmd SetPersonalityCommand) (*SetPersonalityResult, error) {
	if err := requireUser("SetPersonality", cmd.UserID); err != nil {
		return nil, err
	}

	key := strings.ToLower(strings.TrimSpace(cmd.Personality))
	personality, err := h.settings.SetPersonality(ctx, cmd.UserID, key)
	if err != nil {
		return nil, fmt.Errorf("set_personality: %w", err)
	}

	return &SetPersonalityResult{
		Success:     true,
		Message:     fmt.Sprintf("%s %s", personality.Emoji, personality.Message(progression.MessageWelcome, 0)),
		Personality: personality,
	}, nil
}

// StartLearningPathCommand begins a learning path.
type StartLearningPathCommand struct {
	UserID string
	PathID string
}

// StartLearningPathHandler handles StartLearningPathCommand.
type StartLearningPathHandler struct {
	settings ProfileSettings
}

// NewStartLearningPathHandler creates a new StartLearningPathHandler.
func NewStartLearningPathHandler(settings ProfileSettings) *StartLearningPathHandler {
	return &StartLearningPathHandler{settings: settings}
}

// Handle starts the path. Starting a path twice keeps its progress.
func (h *StartLearningPathHandler) Handle(ctx context.Context, cmd StartLearningPathCommand) (*engine.StartPathResult, error) {
	if err := requireUser("StartLearningPath", cmd.UserID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.PathID) == "" {
		return nil, shared.NewDomainError("command", "StartLearningPath", shared.ErrInvalidInput, "path_id is required")
	}

	res, err := h.settings.StartPath(ctx, cmd.UserID, strings.TrimSpace(cmd.PathID))
	if err != nil {
		return nil, fmt.Errorf("start_learning_path: %w", err)
	}
	return res, nil
}
