// Package mcp provides an MCP (Model Context Protocol) server exposing tutor
// session history to MCP clients.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils"
)

type Config struct {
	// Sessions is the session store the tools read from.
	Sessions session.Driver

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the session tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tutor",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Sessions == nil {
			return nil, errors.New("session driver is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        sessionHistoryToolName,
			Description: sessionHistoryDescription,
		}, s.handleSessionHistory)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        listSessionsToolName,
			Description: listSessionsDescription,
		}, s.handleListSessions)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying MCP server, e.g. for in-memory transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
