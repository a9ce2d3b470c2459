package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alem-hub/memory-palace/internal/application/command"
	"github.com/alem-hub/memory-palace/internal/application/query"
)

// UserInput is the input of tools that need nothing but the user.
type UserInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
}

func (in UserInput) user() string { return in.UserID }

// SetPersonalityInput represents the MCP tool input for choosing a personality.
type SetPersonalityInput struct {
	UserID      string `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
	Personality string `json:"personality" jsonschema:"personality key, for example coach, sage or wizard"`
}

func (in SetPersonalityInput) user() string { return in.UserID }

// StartLearningPathInput represents the MCP tool input for starting a learning path.
type StartLearningPathInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
	PathID string `json:"path_id" jsonschema:"learning path identifier from list_learning_paths"`
}

func (in StartLearningPathInput) user() string { return in.UserID }

// CompleteTaskInput represents the MCP tool input for completing a learning path task.
type CompleteTaskInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"user identifier (defaults to the server's default user)"`
	PathID string `json:"path_id" jsonschema:"learning path identifier"`
	Task   string `json:"task" jsonschema:"task of the current stage"`
}

func (in CompleteTaskInput) user() string { return in.UserID }

// ServerInfoInput is empty; server info does not depend on the user.
type ServerInfoInput struct{}

func (s *Server) registerProgressTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_server_info",
		Description: "Describe the server, its storage and the available personalities.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ ServerInfoInput) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		info := s.queries.ServerInfo.Handle()
		s.logCall("get_server_info", "", start, nil)
		return jsonResult(info), nil, nil
	})

	register(s, &mcp.Tool{
		Name:        "get_progress",
		Description: "Show level, XP, streak, achievements and learning paths.",
	}, func(ctx context.Context, userID string, _ UserInput) (any, error) {
		return s.queries.Progress.Handle(ctx, query.GetProgressQuery{UserID: userID})
	})

	register(s, &mcp.Tool{
		Name:        "set_personality",
		Description: "Choose the personality that phrases progress messages.",
	}, func(ctx context.Context, userID string, in SetPersonalityInput) (any, error) {
		return s.commands.SetPersonality.Handle(ctx, command.SetPersonalityCommand{
			UserID:      userID,
			Personality: in.Personality,
		})
	})

	register(s, &mcp.Tool{
		Name:        "list_learning_paths",
		Description: "List learning paths with the user's progress on each.",
	}, func(ctx context.Context, userID string, _ UserInput) (any, error) {
		return s.queries.LearningPaths.Handle(ctx, query.ListLearningPathsQuery{UserID: userID})
	})

	register(s, &mcp.Tool{
		Name:        "start_learning_path",
		Description: "Start a learning path. Starting a path twice keeps its progress.",
	}, func(ctx context.Context, userID string, in StartLearningPathInput) (any, error) {
		return s.commands.StartLearningPath.Handle(ctx, command.StartLearningPathCommand{
			UserID: userID,
			PathID: in.PathID,
		})
	})

	register(s, &mcp.Tool{
		Name:        "complete_task",
		Description: "Complete a task of a learning path stage. Finishing a stage awards XP.",
	}, func(ctx context.Context, userID string, in CompleteTaskInput) (any, error) {
		return s.commands.CompleteTask.Handle(ctx, command.CompleteTaskCommand{
			UserID: userID,
			PathID: in.PathID,
			Task:   in.Task,
		})
	})

	register(s, &mcp.Tool{
		Name:        "list_achievements",
		Description: "List every achievement and whether the user has unlocked it.",
	}, func(ctx context.Context, userID string, _ UserInput) (any, error) {
		return s.queries.ListAchievements.Handle(ctx, query.ListAchievementsQuery{UserID: userID})
	})

	register(s, &mcp.Tool{
		Name:        "get_challenges",
		Description: "Show the user's active challenges and the challenge types.",
	}, func(ctx context.Context, userID string, _ UserInput) (any, error) {
		return s.queries.Challenges.Handle(ctx, query.GetChallengesQuery{UserID: userID})
	})
}
