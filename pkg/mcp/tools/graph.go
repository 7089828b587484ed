package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/models"
	"github.com/immarkus/immarkus-engine/pkg/services"
)

const defaultSummaryTop = 10

// GraphToolDeps contains dependencies for the knowledge graph tools.
type GraphToolDeps struct {
	GraphService services.KnowledgeGraphService
	Logger       *zap.Logger
}

type linkedNodes struct {
	NodeID string             `json:"node_id"`
	Hops   int                `json:"hops"`
	Nodes  []models.GraphNode `json:"nodes"`
}

// RegisterGraphTools registers the knowledge graph tools.
func RegisterGraphTools(s *server.MCPServer, deps *GraphToolDeps) {
	registerGraphSummaryTool(s, deps)
	registerLinkedNodesTool(s, deps)
}

func registerGraphSummaryTool(s *server.MCPServer, deps *GraphToolDeps) {
	tool := readOnly("get_knowledge_graph_summary",
		"Summarise the knowledge graph derived from entity classes and image annotations: "+
			"node and link counts, degree and link weight ranges, and the best connected nodes.",
		mcp.WithNumber("top", mcp.Description("How many entity classes to rank by degree (default 10)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		top := getOptionalInt(req, "top", defaultSummaryTop)
		if top < 0 {
			return NewErrorResult("invalid_parameter", "top must not be negative"), nil
		}

		summary, err := deps.GraphService.GetSummary(ctx, top)
		if err != nil {
			deps.Logger.Error("Failed to summarise knowledge graph", zap.Error(err))
			return nil, err
		}
		return jsonResult(summary)
	})
}

func registerLinkedNodesTool(s *server.MCPServer, deps *GraphToolDeps) {
	tool := readOnly("get_linked_nodes",
		"List the nodes linked to a graph node. Node ids are entity class ids or image ids. "+
			"Only hops=1 is supported.",
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Id of the graph node")),
		mcp.WithNumber("hops", mcp.Description("Neighbourhood radius (default 1)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nodeID, err := requireTrimmedString(req, "node_id")
		if err != nil {
			return NewErrorResult("invalid_parameter", err.Error()), nil
		}
		hops := getOptionalInt(req, "hops", 1)

		nodes, err := deps.GraphService.GetNeighbourhood(ctx, nodeID, hops)
		if err != nil {
			if result := domainErrorResult(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("Failed to resolve linked nodes", zap.String("node_id", nodeID), zap.Error(err))
			return nil, err
		}
		return jsonResult(linkedNodes{NodeID: nodeID, Hops: hops, Nodes: nodes})
	})
}
