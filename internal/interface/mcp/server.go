// Package mcp exposes the memory palace as MCP tools.
//
// Every tool takes an optional user_id; calls without one act on the
// configured default user. Tool failures are returned as tool errors
// (IsError) with the message and, where known, the valid options.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alem-hub/memory-palace/internal/application/command"
	"github.com/alem-hub/memory-palace/internal/application/query"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Commands are the write-side handlers behind the tools.
type Commands struct {
	CreateRoom        *command.CreateRoomHandler
	StoreMemory       *command.StoreMemoryHandler
	TakeJourney       *command.TakeJourneyHandler
	SearchMemories    *command.SearchMemoriesHandler
	SetPersonality    *command.SetPersonalityHandler
	StartLearningPath *command.StartLearningPathHandler
	CompleteTask      *command.CompleteTaskHandler
}

// Queries are the read-side handlers behind the tools.
type Queries struct {
	PalaceOverview   *query.GetPalaceOverviewHandler
	ReviewSchedule   *query.GetReviewScheduleHandler
	ServerInfo       *query.GetServerInfoHandler
	Progress         *query.GetProgressHandler
	LearningPaths    *query.ListLearningPathsHandler
	ListAchievements *query.ListAchievementsHandler
	Challenges       *query.GetChallengesHandler
}

// Config describes the server to MCP clients.
type Config struct {
	Name        string
	Version     string
	DefaultUser string
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server wraps an mcp.Server with the memory palace tools registered.
type Server struct {
	server      *mcp.Server
	commands    Commands
	queries     Queries
	defaultUser string
	log         *logger.Logger
}

// NewServer creates the MCP server and registers all tools.
func NewServer(cfg Config, commands Commands, queries Queries, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if strings.TrimSpace(cfg.DefaultUser) == "" {
		cfg.DefaultUser = "default"
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		commands:    commands,
		queries:     queries,
		defaultUser: cfg.DefaultUser,
		log:         log.With(logger.Component("mcp")),
	}

	s.registerPalaceTools()
	s.registerProgressTools()
	return s
}

// Run serves the tools over transport until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// RunStdio serves the tools over stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the tools over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// TOOL PLUMBING
// ══════════════════════════════════════════════════════════════════════════════

// userScoped is implemented by every tool input that carries user_id.
type userScoped interface {
	user() string
}

// ErrorPayload is the structured content of a failed tool call.
type ErrorPayload struct {
	Error   string   `json:"error"`
	Options []string `json:"options,omitempty"`
}

// register adds a user-scoped tool. fn receives the resolved user id.
func register[In userScoped](s *Server, tool *mcp.Tool, fn func(ctx context.Context, userID string, in In) (any, error)) {
	mcp.AddTool(s.server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		userID := s.resolveUser(in.user())
		start := time.Now()

		out, err := fn(ctx, userID, in)
		s.logCall(tool.Name, userID, start, err)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(out), nil, nil
	})
}

func (s *Server) resolveUser(userID string) string {
	if id := strings.TrimSpace(userID); id != "" {
		return id
	}
	return s.defaultUser
}

func (s *Server) logCall(tool, userID string, start time.Time, err error) {
	fields := []logger.Field{
		logger.Tool(tool),
		logger.UserID(userID),
		logger.Latency(time.Since(start)),
	}
	switch {
	case err == nil:
		s.log.Debug("tool call", fields...)
	case shared.IsStorageUnavailable(err) || !isUserError(err):
		s.log.Error("tool call failed", append(fields, logger.Err(err))...)
	default:
		s.log.Info("tool call rejected", append(fields, logger.Err(err))...)
	}
}

// isUserError reports whether err was caused by the caller's input.
func isUserError(err error) bool {
	return shared.IsValidation(err) ||
		shared.IsNotFound(err) ||
		shared.IsAlreadyExists(err) ||
		shared.IsInvalidTask(err) ||
		errors.Is(err, shared.ErrTaskAlreadyCompleted)
}

func jsonResult(out any) *mcp.CallToolResult {
	data, err := json.Marshal(out)
	if err != nil {
		return errorResult(err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: json.RawMessage(data),
	}
}

func errorResult(err error) *mcp.CallToolResult {
	payload := ErrorPayload{Error: err.Error(), Options: shared.OptionsOf(err)}
	data, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		IsError:           true,
		Content:           []mcp.Content{&mcp.TextContent{Text: payload.Error}},
		StructuredContent: json.RawMessage(data),
	}
}
