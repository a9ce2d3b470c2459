package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alem-hub/memory-palace/internal/application/command"
	"github.com/alem-hub/memory-palace/internal/application/query"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// CreateRoomInput represents the MCP tool input for creating a room.
type CreateRoomInput struct {
	UserID      string   `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
	Name        string   `json:"name" jsonschema:"unique room name"`
	Description string   `json:"description,omitempty" jsonschema:"what the room looks like"`
	Connections []string `json:"connections,omitempty" jsonschema:"names of rooms this room leads to"`
}

func (in CreateRoomInput) user() string { return in.UserID }

// StoreMemoryInput represents the MCP tool input for storing a memory.
type StoreMemoryInput struct {
	UserID       string   `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
	Room         string   `json:"room" jsonschema:"room to place the memory in"`
	Content      string   `json:"content" jsonschema:"the information to remember"`
	VisualAnchor string   `json:"visual_anchor" jsonschema:"vivid image tying the content to its place"`
	X            float64  `json:"x,omitempty" jsonschema:"position in the room"`
	Y            float64  `json:"y,omitempty" jsonschema:"position in the room"`
	Z            float64  `json:"z,omitempty" jsonschema:"position in the room"`
	Keywords     []string `json:"keywords,omitempty" jsonschema:"search keywords"`
}

func (in StoreMemoryInput) user() string { return in.UserID }

// MemoryJourneyInput represents the MCP tool input for walking through a room.
type MemoryJourneyInput struct {
	UserID             string `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
	Room               string `json:"room" jsonschema:"room to walk through"`
	IncludeConnections bool   `json:"include_connections,omitempty" jsonschema:"list the connected rooms as next stops"`
}

func (in MemoryJourneyInput) user() string { return in.UserID }

// SearchMemoriesInput represents the MCP tool input for searching memories.
type SearchMemoriesInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
	Query  string `json:"query" jsonschema:"text matched against content, anchors and keywords"`
	Room   string `json:"room,omitempty" jsonschema:"limit the search to one room"`
}

func (in SearchMemoriesInput) user() string { return in.UserID }

// PalaceOverviewInput represents the MCP tool input for the palace overview.
type PalaceOverviewInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
}

func (in PalaceOverviewInput) user() string { return in.UserID }

// ReviewScheduleInput represents the MCP tool input for the review schedule.
type ReviewScheduleInput struct {
	UserID  string `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
	Room    string `json:"room,omitempty" jsonschema:"limit the schedule to one room"`
	DueOnly bool   `json:"due_only,omitempty" jsonschema:"only list memories due for review"`
}

func (in ReviewScheduleInput) user() string { return in.UserID }

func (s *Server) registerPalaceTools() {
	register(s, &mcp.Tool{
		Name:        "create_room",
		Description: "Create a new room in the memory palace. Awards XP and may unlock achievements.",
	}, func(ctx context.Context, userID string, in CreateRoomInput) (any, error) {
		return s.commands.CreateRoom.Handle(ctx, command.CreateRoomCommand{
			UserID:      userID,
			Name:        in.Name,
			Description: in.Description,
			Connections: in.Connections,
		})
	})

	register(s, &mcp.Tool{
		Name:        "store_memory",
		Description: "Store a memory at a position in a room, tied to a visual anchor.",
	}, func(ctx context.Context, userID string, in StoreMemoryInput) (any, error) {
		return s.commands.StoreMemory.Handle(ctx, command.StoreMemoryCommand{
			UserID:       userID,
			Room:         in.Room,
			Content:      in.Content,
			VisualAnchor: in.VisualAnchor,
			Position:     shared.Position{X: in.X, Y: in.Y, Z: in.Z},
			Keywords:     in.Keywords,
		})
	})

	register(s, &mcp.Tool{
		Name:        "memory_journey",
		Description: "Walk through the memories of a room in spatial order.",
	}, func(ctx context.Context, userID string, in MemoryJourneyInput) (any, error) {
		return s.commands.TakeJourney.Handle(ctx, command.TakeJourneyCommand{
			UserID:             userID,
			Room:               in.Room,
			IncludeConnections: in.IncludeConnections,
		})
	})

	register(s, &mcp.Tool{
		Name:        "search_memories",
		Description: "Search memories by content, visual anchor or keyword.",
	}, func(ctx context.Context, userID string, in SearchMemoriesInput) (any, error) {
		return s.commands.SearchMemories.Handle(ctx, command.SearchMemoriesCommand{
			UserID: userID,
			Query:  in.Query,
			Room:   in.Room,
		})
	})

	register(s, &mcp.Tool{
		Name:        "get_palace_overview",
		Description: "Summarize the rooms and memories of the palace.",
	}, func(ctx context.Context, userID string, _ PalaceOverviewInput) (any, error) {
		return s.queries.PalaceOverview.Handle(ctx, query.GetPalaceOverviewQuery{UserID: userID})
	})

	register(s, &mcp.Tool{
		Name:        "review_schedule",
		Description: "Show the spaced-repetition schedule of stored memories.",
	}, func(ctx context.Context, userID string, in ReviewScheduleInput) (any, error) {
		return s.queries.ReviewSchedule.Handle(ctx, query.GetReviewScheduleQuery{
			UserID:  userID,
			Room:    in.Room,
			DueOnly: in.DueOnly,
		})
	})
}
