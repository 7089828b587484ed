package mcp

import (
	"context"
	"sort"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ToolStats counts the calls of one tool.
type ToolStats struct {
	Tool     string `json:"tool"`
	Calls    int    `json:"calls"`
	Failures int    `json:"failures"`
}

// CallLog logs tool calls and keeps per-tool counters. A call whose result
// is flagged as an error counts as a failure, as does a call the server
// rejected.
type CallLog struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map

	mu    sync.Mutex
	stats map[string]*ToolStats
}

// NewCallLog creates an empty call log.
func NewCallLog(logger *zap.Logger) *CallLog {
	return &CallLog{
		logger: logger.Named("mcp-calls"),
		stats:  make(map[string]*ToolStats),
	}
}

// Hooks returns mcp-go hooks that feed this log.
func (c *CallLog) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(c.beforeCallTool)
	hooks.AddAfterCallTool(c.afterCallTool)
	hooks.AddOnError(c.onError)
	return hooks
}

func (c *CallLog) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	c.startTimes.Store(id, time.Now())
}

func (c *CallLog) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	duration := c.elapsed(id)
	failed := result != nil && result.IsError
	c.record(req.Params.Name, failed)

	c.logger.Info("Tool call",
		zap.String("tool", req.Params.Name),
		zap.Bool("is_error", failed),
		zap.Duration("duration", duration),
	)
}

func (c *CallLog) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	duration := c.elapsed(id)
	c.record(req.Params.Name, true)

	c.logger.Warn("Tool call failed",
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", duration),
		zap.Error(err),
	)
}

func (c *CallLog) elapsed(id any) time.Duration {
	if v, ok := c.startTimes.LoadAndDelete(id); ok {
		return time.Since(v.(time.Time))
	}
	return 0
}

func (c *CallLog) record(tool string, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[tool]
	if !ok {
		s = &ToolStats{Tool: tool}
		c.stats[tool] = s
	}
	s.Calls++
	if failed {
		s.Failures++
	}
}

// Stats returns a copy of the counters, sorted by tool name.
func (c *CallLog) Stats() []ToolStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ToolStats, 0, len(c.stats))
	for _, s := range c.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}
