package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Storage string `json:"storage"`
}

// RegisterHealthTool adds a health check tool reporting the server version
// and the document store in use.
func RegisterHealthTool(s *server.MCPServer, version, storage string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and storage driver"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(healthResult{Status: "ok", Version: version, Storage: storage})
	})
}
