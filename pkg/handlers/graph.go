package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/models"
	"github.com/immarkus/immarkus-engine/pkg/services"
)

// NeighbourhoodResponse for GET /api/graph/nodes/{id}/neighbours
type NeighbourhoodResponse struct {
	NodeID string             `json:"nodeId"`
	Hops   int                `json:"hops"`
	Nodes  []models.GraphNode `json:"nodes"`
}

// GraphHandler serves the derived knowledge graph.
type GraphHandler struct {
	graphService services.KnowledgeGraphService
	logger       *zap.Logger
}

// NewGraphHandler creates a new knowledge graph handler.
func NewGraphHandler(graphService services.KnowledgeGraphService, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{graphService: graphService, logger: logger}
}

// RegisterRoutes registers the graph handler's routes on the given mux.
func (h *GraphHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph", h.Get)
	mux.HandleFunc("GET /api/graph/summary", h.Summary)
	mux.HandleFunc("GET /api/graph/nodes/{id}/neighbours", h.Neighbours)
}

// Get handles GET /api/graph
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.graphService.GetGraph(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, g, h.logger)
}

// Summary handles GET /api/graph/summary[?top=N]
func (h *GraphHandler) Summary(w http.ResponseWriter, r *http.Request) {
	top, ok := ParseIntQuery(w, r, "top", 10, h.logger)
	if !ok {
		return
	}

	summary, err := h.graphService.GetSummary(r.Context(), top)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, summary, h.logger)
}

// Neighbours handles GET /api/graph/nodes/{id}/neighbours[?hops=N]
func (h *GraphHandler) Neighbours(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequiredPathValue(w, r, "id", h.logger)
	if !ok {
		return
	}
	hops, ok := ParseIntQuery(w, r, "hops", 1, h.logger)
	if !ok {
		return
	}

	nodes, err := h.graphService.GetNeighbourhood(r.Context(), id, hops)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, NeighbourhoodResponse{NodeID: id, Hops: hops, Nodes: nodes}, h.logger)
}
