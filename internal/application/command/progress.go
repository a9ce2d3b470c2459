// Package command contains write operations (CQRS - Commands).
//
// Every palace command mutates the palace and then runs the progression
// engine while holding the same per-user lock, so the engine sees the
// action it is scoring.
package command

import (
	"context"
	"errors"
	"strings"

	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

// Progression is the part of the engine the commands use.
type Progression interface {
	WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error
	EvaluateLocked(ctx context.Context, userID string, ev engine.Event) (*engine.ProgressResult, error)
}

// ProgressOutcome is attached to every palace command result.
// Exactly one of Progress or ProgressError is set after a successful action.
type ProgressOutcome struct {
	Progress      *engine.ProgressResult `json:"progress,omitempty"`
	ProgressError string                 `json:"progress_error,omitempty"`
}

// evaluate scores a successful palace action. A failure here never fails
// the action itself; it degrades to ProgressError.
func evaluate(ctx context.Context, p Progression, log *logger.Logger, userID string, ev engine.Event) ProgressOutcome {
	res, err := p.EvaluateLocked(ctx, userID, ev)
	if err != nil {
		log.Warn("progression failed after palace action",
			logger.UserID(userID),
			logger.String("event", string(ev.Kind)),
			logger.Err(err),
		)
		return ProgressOutcome{ProgressError: err.Error()}
	}
	return ProgressOutcome{Progress: res}
}

func requireUser(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return shared.WrapError("command", op, shared.ErrInvalidID, "user id is required", errors.New("empty user id"))
	}
	return nil
}
