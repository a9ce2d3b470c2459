package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

// SearchMemoriesCommand searches the palace. Room narrows the search.
type SearchMemoriesCommand struct {
	UserID string
	Query  string
	Room   string
}

// SearchMemoriesResult contains the hits and the progression outcome.
type SearchMemoriesResult struct {
	*palace.SearchResult
	ProgressOutcome
}

// SearchMemoriesHandler handles SearchMemoriesCommand.
type SearchMemoriesHandler struct {
	palace   *palace.Service
	progress Progression
	clock    engine.Clock
	log      *logger.Logger
}

// NewSearchMemoriesHandler creates a new SearchMemoriesHandler.
func NewSearchMemoriesHandler(svc *palace.Service, progress Progression, clock engine.Clock, log *logger.Logger) *SearchMemoriesHandler {
	return &SearchMemoriesHandler{palace: svc, progress: progress, clock: clock, log: log}
}

// Handle runs the search and scores it.
func (h *SearchMemoriesHandler) Handle(ctx context.Context, cmd SearchMemoriesCommand) (*SearchMemoriesResult, error) {
	if err := requireUser("SearchMemories", cmd.UserID); err != nil {
		return nil, err
	}

	var result *SearchMemoriesResult
	err := h.progress.WithUserLock(ctx, cmd.UserID, func(ctx context.Context) error {
		found, err := h.palace.Search(ctx, cmd.UserID, cmd.Query, cmd.Room, h.clock.Now())
		if err != nil {
			return err
		}
		result = &SearchMemoriesResult{
			SearchResult:    found,
			ProgressOutcome: evaluate(ctx, h.progress, h.log, cmd.UserID, engine.SearchPerformed(found.ResultsCount)),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search_memories: %w", err)
	}
	return result, nil
}
