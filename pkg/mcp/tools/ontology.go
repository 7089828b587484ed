// Package tools provides the MCP tools of immarkus-engine.
package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

// DataModelReader is the read side of the data model store.
type DataModelReader interface {
	EntityTypes() []models.EntityType
	GetEntityType(id string, inherit bool) (models.EntityType, bool)
	ChildTypes(id string) []models.EntityType
	ParentChain(id string) []models.EntityType
	Schemas(kind models.SchemaKind) ([]models.MetadataSchema, error)
}

// OntologyToolDeps contains dependencies for the data model tools.
type OntologyToolDeps struct {
	Model  DataModelReader
	Logger *zap.Logger
}

type entityTypeList struct {
	EntityTypes []models.EntityType `json:"entity_types"`
	Total       int                 `json:"total"`
}

type schemaList struct {
	Kind    models.SchemaKind       `json:"kind"`
	Schemas []models.MetadataSchema `json:"schemas"`
	Total   int                     `json:"total"`
}

// RegisterOntologyTools registers the read-only data model tools.
func RegisterOntologyTools(s *server.MCPServer, deps *OntologyToolDeps) {
	registerListEntityTypesTool(s, deps)
	registerGetEntityTypeTool(s, deps)
	registerGetChildTypesTool(s, deps)
	registerGetParentChainTool(s, deps)
	registerListSchemasTool(s, deps)
}

func readOnly(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
	return mcp.NewTool(name, opts...)
}

func registerListEntityTypesTool(s *server.MCPServer, deps *OntologyToolDeps) {
	tool := readOnly("list_entity_types",
		"List every entity class in the data model in stored order. "+
			"With inherit=true each class also carries the properties of its ancestors, "+
			"root ancestor first, marked with inheritedFrom.",
		mcp.WithBoolean("inherit", mcp.Description("Include inherited properties (default false)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		inherit := getOptionalBool(req, "inherit", false)

		types := deps.Model.EntityTypes()
		if inherit {
			for i, t := range types {
				if resolved, ok := deps.Model.GetEntityType(t.ID, true); ok {
					types[i] = resolved
				}
			}
		}
		return jsonResult(entityTypeList{EntityTypes: types, Total: len(types)})
	})
}

func registerGetEntityTypeTool(s *server.MCPServer, deps *OntologyToolDeps) {
	tool := readOnly("get_entity_type",
		"Get one entity class by id. Example: get_entity_type(id='person', inherit=true).",
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity class id")),
		mcp.WithBoolean("inherit", mcp.Description("Include inherited properties (default true)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireTrimmedString(req, "id")
		if err != nil {
			return NewErrorResult("invalid_parameter", err.Error()), nil
		}

		t, ok := deps.Model.GetEntityType(id, getOptionalBool(req, "inherit", true))
		if !ok {
			return NewErrorResult("not_found", fmt.Sprintf("no entity class with id %q", id)), nil
		}
		return jsonResult(t)
	})
}

func registerGetChildTypesTool(s *server.MCPServer, deps *OntologyToolDeps) {
	tool := readOnly("get_children",
		"List the direct subclasses of an entity class.",
		mcp.WithString("id", mcp.Required(), mcp.Description("Parent entity class id")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireTrimmedString(req, "id")
		if err != nil {
			return NewErrorResult("invalid_parameter", err.Error()), nil
		}
		if _, ok := deps.Model.GetEntityType(id, false); !ok {
			return NewErrorResult("not_found", fmt.Sprintf("no entity class with id %q", id)), nil
		}

		children := deps.Model.ChildTypes(id)
		return jsonResult(entityTypeList{EntityTypes: children, Total: len(children)})
	})
}

func registerGetParentChainTool(s *server.MCPServer, deps *OntologyToolDeps) {
	tool := readOnly("get_parent_chain",
		"List the ancestors of an entity class, nearest parent first.",
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity class id")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireTrimmedString(req, "id")
		if err != nil {
			return NewErrorResult("invalid_parameter", err.Error()), nil
		}
		if _, ok := deps.Model.GetEntityType(id, false); !ok {
			return NewErrorResult("not_found", fmt.Sprintf("no entity class with id %q", id)), nil
		}

		chain := deps.Model.ParentChain(id)
		return jsonResult(entityTypeList{EntityTypes: chain, Total: len(chain)})
	})
}

func registerListSchemasTool(s *server.MCPServer, deps *OntologyToolDeps) {
	tool := readOnly("list_metadata_schemas",
		"List the image or folder metadata schemas.",
		mcp.WithString("kind", mcp.Description("image (default) or folder"), mcp.Enum("image", "folder")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind := models.SchemaKind(getOptionalString(req, "kind"))
		if kind == "" {
			kind = models.SchemaKindImage
		}

		schemas, err := deps.Model.Schemas(kind)
		if err != nil {
			if result := domainErrorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(schemaList{Kind: kind, Schemas: schemas, Total: len(schemas)})
	})
}
