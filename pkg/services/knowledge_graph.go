package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/apperrors"
	"github.com/immarkus/immarkus-engine/pkg/graph"
	"github.com/immarkus/immarkus-engine/pkg/models"
)

// ModelSnapshotter hands out deep copies of the data model.
type ModelSnapshotter interface {
	Snapshot() models.DataModel
}

// ImageLister lists the images of the work folder.
type ImageLister interface {
	Images() []models.Image
}

// GraphSummary condenses a knowledge graph for clients that do not render it.
type GraphSummary struct {
	ImageCount      int                `json:"image_count"`
	EntityTypeCount int                `json:"entity_type_count"`
	LinkCount       int                `json:"link_count"`
	MinDegree       int                `json:"min_degree"`
	MaxDegree       int                `json:"max_degree"`
	MinLinkWeight   int                `json:"min_link_weight"`
	MaxLinkWeight   int                `json:"max_link_weight"`
	TopNodes        []models.GraphNode `json:"top_nodes"`
}

// KnowledgeGraphService derives the knowledge graph from the current data
// model and annotations. Nothing is cached; every call sees current state.
type KnowledgeGraphService interface {
	// GetGraph builds the full graph.
	GetGraph(ctx context.Context) (*graph.Graph, error)

	// GetLinkedNodes returns the direct neighbours of a node.
	GetLinkedNodes(ctx context.Context, nodeID string) ([]models.GraphNode, error)

	// GetNeighbourhood returns the nodes within hops of a node.
	GetNeighbourhood(ctx context.Context, nodeID string, hops int) ([]models.GraphNode, error)

	// GetSummary returns counts, ranges and the top entity classes by degree.
	GetSummary(ctx context.Context, top int) (*GraphSummary, error)
}

type knowledgeGraphService struct {
	model   ModelSnapshotter
	images  ImageLister
	builder *graph.Builder
	logger  *zap.Logger
}

var _ KnowledgeGraphService = (*knowledgeGraphService)(nil)

// NewKnowledgeGraphService creates a knowledge graph service.
func NewKnowledgeGraphService(model ModelSnapshotter, images ImageLister, builder *graph.Builder, logger *zap.Logger) KnowledgeGraphService {
	return &knowledgeGraphService{
		model:   model,
		images:  images,
		builder: builder,
		logger:  logger.Named("knowledge-graph"),
	}
}

func (s *knowledgeGraphService) GetGraph(ctx context.Context) (*graph.Graph, error) {
	snapshot := s.model.Snapshot()
	g, err := s.builder.Build(ctx, snapshot.EntityTypes, s.images.Images())
	if err != nil {
		s.logger.Error("Failed to build knowledge graph", zap.Error(err))
		return nil, fmt.Errorf("build knowledge graph: %w", err)
	}
	return g, nil
}

func (s *knowledgeGraphService) graphWithNode(ctx context.Context, nodeID string) (*graph.Graph, error) {
	g, err := s.GetGraph(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := g.Node(nodeID); !ok {
		return nil, fmt.Errorf("graph node %q: %w", nodeID, apperrors.ErrNotFound)
	}
	return g, nil
}

func (s *knowledgeGraphService) GetLinkedNodes(ctx context.Context, nodeID string) ([]models.GraphNode, error) {
	g, err := s.graphWithNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return g.LinkedNodes(nodeID), nil
}

func (s *knowledgeGraphService) GetNeighbourhood(ctx context.Context, nodeID string, hops int) ([]models.GraphNode, error) {
	g, err := s.graphWithNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return g.Neighbourhood(nodeID, hops)
}

func (s *knowledgeGraphService) GetSummary(ctx context.Context, top int) (*GraphSummary, error) {
	g, err := s.GetGraph(ctx)
	if err != nil {
		return nil, err
	}

	summary := &GraphSummary{
		LinkCount:     len(g.Links),
		MinDegree:     g.MinDegree,
		MaxDegree:     g.MaxDegree,
		MinLinkWeight: g.MinLinkWeight,
		MaxLinkWeight: g.MaxLinkWeight,
	}
	for _, n := range g.Nodes {
		switch n.Type {
		case models.GraphNodeImage:
			summary.ImageCount++
		case models.GraphNodeEntityType:
			summary.EntityTypeCount++
		}
	}

	// Only entity classes are ranked; images are counted above.
	ranked := slices.DeleteFunc(slices.Clone(g.Nodes), func(n models.GraphNode) bool {
		return n.Type != models.GraphNodeEntityType
	})
	// Stable sort keeps graph order among equal degrees.
	slices.SortStableFunc(ranked, func(a, b models.GraphNode) int {
		return cmp.Compare(b.Degree, a.Degree)
	})
	if top >= 0 && top < len(ranked) {
		ranked = ranked[:top]
	}
	summary.TopNodes = ranked

	return summary, nil
}
