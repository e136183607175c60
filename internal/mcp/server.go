package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oscillatelabsllc/recall/internal/models"
	"github.com/oscillatelabsllc/recall/internal/pipeline"
	"github.com/rs/zerolog"
)

const (
	serverName    = "Recall Chat Assistant"
	serverVersion = "1.0.0"
)

// TurnHandler runs chat turns and memory lookups
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID int64, message string) pipeline.Result
	Recall(ctx context.Context, userID int64, text string, count int) ([]models.Memory, error)
}

// Pinger reports whether the memory store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the chat pipeline as MCP tools
type Server struct {
	turns     TurnHandler
	store     Pinger
	logger    zerolog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server
func NewServer(turns TurnHandler, store Pinger, logger zerolog.Logger) *Server {
	s := &Server{
		turns:  turns,
		store:  store,
		logger: logger.With().Str("component", "mcp").Logger(),
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "chat",
		Description: "Send a message to the assistant on behalf of a user. The assistant recalls that user's past messages, searches the web when needed, and remembers the message for later turns.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "integer",
					"description": "Numeric id of the user. Memories are never shared between users.",
				},
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The user's message",
				},
			},
			Required: []string{"user_id", "message"},
		},
	}, s.handleChat)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "recall_memories",
		Description: "Find a user's past messages that are semantically similar to a query, most similar first. Does not store anything.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "integer",
					"description": "Numeric id of the user whose memories to search",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language text to search for",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of memories to return (default: 8, max: 50)",
				},
			},
			Required: []string{"user_id", "query"},
		},
	}, s.handleRecall)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_status",
		Description: "Health check for the assistant and its memory store",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
			Required:   []string{},
		},
	}, s.handleGetStatus)
}

// parseParams converts MCP request arguments to a struct
func parseParams(args interface{}, target interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		UserID  *int64 `json:"user_id"`
		Message string `json:"message"`
	}

	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if params.UserID == nil {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	if strings.TrimSpace(params.Message) == "" {
		return mcp.NewToolResultError("message is required"), nil
	}

	res := s.turns.HandleTurn(ctx, *params.UserID, params.Message)
	if !res.OK() {
		// the caller still gets the apology, same as the chat surfaces
		s.logger.Warn().Int64("user_id", *params.UserID).Str("step", res.FailedStep()).Msg("chat tool turn failed")
	}

	result, _ := json.Marshal(map[string]interface{}{
		"response": res.Reply(),
	})
	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) handleRecall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		UserID     *int64 `json:"user_id"`
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}

	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if params.UserID == nil {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	if params.Query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	if params.MaxResults <= 0 {
		params.MaxResults = models.DefaultMatchCount
	}
	params.MaxResults = min(params.MaxResults, models.MaxMatchCount)

	memories, err := s.turns.Recall(ctx, *params.UserID, params.Query, params.MaxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recall failed: %v", err)), nil
	}

	for i := range memories {
		memories[i].Embedding = nil
	}
	if memories == nil {
		memories = []models.Memory{}
	}

	result, _ := json.Marshal(memories)
	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status":  "healthy",
		"version": serverVersion,
		"memory":  "reachable",
	}
	if err := s.store.Ping(pingCtx); err != nil {
		status["status"] = "degraded"
		status["memory"] = err.Error()
	}

	result, _ := json.Marshal(status)
	return mcp.NewToolResultText(string(result)), nil
}

// Serve starts the MCP server with stdio transport
func (s *Server) Serve() error {
	s.logger.Info().Msg("serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// GetMCPServer returns the underlying MCP server for use with other transports (e.g., SSE)
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
