package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/annotations"
	"github.com/immarkus/immarkus-engine/pkg/config"
	"github.com/immarkus/immarkus-engine/pkg/datamodel"
	"github.com/immarkus/immarkus-engine/pkg/docstore"
	"github.com/immarkus/immarkus-engine/pkg/graph"
	"github.com/immarkus/immarkus-engine/pkg/handlers"
	"github.com/immarkus/immarkus-engine/pkg/images"
	"github.com/immarkus/immarkus-engine/pkg/mcp"
	"github.com/immarkus/immarkus-engine/pkg/mcp/tools"
	"github.com/immarkus/immarkus-engine/pkg/middleware"
	"github.com/immarkus/immarkus-engine/pkg/services"
)

// App holds the wired components every command works on.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Docs        docstore.Store
	Model       *datamodel.Store
	Catalog     *images.Catalog
	Annotations *annotations.Store
	Graph       services.KnowledgeGraphService
}

// OpenApp opens the document store, loads the data model and scans the image
// root. The caller must Close the returned App.
func OpenApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	docs, err := docstore.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	model, err := datamodel.Load(ctx, docs, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("load data model: %w", err), docs.Close())
	}

	catalog, err := images.Scan(cfg.Images.Root, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("scan images: %w", err), docs.Close())
	}

	store := annotations.NewStore(docs, catalog, model, logger)
	builder := graph.NewBuilder(store, cfg.Graph.FetchConcurrency, logger)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Docs:        docs,
		Model:       model,
		Catalog:     catalog,
		Annotations: store,
		Graph:       services.NewKnowledgeGraphService(model, catalog, builder, logger),
	}, nil
}

// Close releases the document store.
func (a *App) Close() error {
	return a.Docs.Close()
}

// Handler returns the HTTP API, with the MCP endpoint mounted at /mcp when
// enabled.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(a.Config, a.Logger).RegisterRoutes(mux)
	handlers.NewEntityTypeHandler(a.Model, a.Logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(a.Model, a.Logger).RegisterRoutes(mux)
	handlers.NewImageHandler(a.Catalog, a.Annotations, a.Logger).RegisterRoutes(mux)
	handlers.NewGraphHandler(a.Graph, a.Logger).RegisterRoutes(mux)
	handlers.NewExportHandler(a.Model, a.Catalog, a.Annotations, a.Logger).RegisterRoutes(mux)

	if a.Config.MCP.Enabled {
		mcpServer := mcp.NewServer("immarkus-engine", a.Config.Version, a.Logger)
		tools.RegisterHealthTool(mcpServer.MCP(), a.Config.Version, a.Config.Storage.Driver)
		tools.RegisterOntologyTools(mcpServer.MCP(), &tools.OntologyToolDeps{Model: a.Model, Logger: a.Logger})
		tools.RegisterGraphTools(mcpServer.MCP(), &tools.GraphToolDeps{GraphService: a.Graph, Logger: a.Logger})

		mcpLogger := a.Logger.Named("mcp")
		mux.Handle("/mcp", middleware.MCPRequestLogger(mcpLogger)(mcpServer.NewStreamableHTTPServer()))
	}

	return middleware.Chain(mux,
		middleware.Recoverer(a.Logger),
		middleware.RequestLogger(a.Logger.Named("http")),
	)
}
