// Package mcp exposes the data model and knowledge graph to MCP clients.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server wraps the mcp-go MCPServer together with its tool call log.
type Server struct {
	mcp    *server.MCPServer
	calls  *CallLog
	logger *zap.Logger
}

// NewServer creates an MCP server that advertises tools and logs every call.
func NewServer(name, version string, logger *zap.Logger) *Server {
	calls := NewCallLog(logger)
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithHooks(calls.Hooks()),
	)

	return &Server{
		mcp:    mcpServer,
		calls:  calls,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Calls returns the per-tool call statistics.
func (s *Server) Calls() *CallLog {
	return s.calls
}

// NewStreamableHTTPServer creates a stateless HTTP transport for this server.
// Routing to /mcp is left to the caller's mux.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
