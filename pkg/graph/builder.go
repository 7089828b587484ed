package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/immarkus/immarkus-engine/pkg/models"
	"github.com/immarkus/immarkus-engine/pkg/ontology"
)

// AnnotationSource supplies the annotations of one image.
type AnnotationSource interface {
	GetAnnotations(ctx context.Context, imageID string, filter models.AnnotationFilter) ([]models.Annotation, error)
}

// DefaultConcurrency bounds annotation reads when no limit is configured.
const DefaultConcurrency = 8

// Builder fetches annotations for every image and projects the graph.
type Builder struct {
	source      AnnotationSource
	concurrency int
	logger      *zap.Logger
}

// NewBuilder returns a builder reading at most concurrency images at a time.
func NewBuilder(source AnnotationSource, concurrency int, logger *zap.Logger) *Builder {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Builder{
		source:      source,
		concurrency: concurrency,
		logger:      logger.Named("graph-builder"),
	}
}

// Build reads the region annotations of every image and returns the graph
// for entityTypes. The first read error aborts the build.
func (b *Builder) Build(ctx context.Context, entityTypes []models.EntityType, images []models.Image) (*Graph, error) {
	perImage := make([][]models.Annotation, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, img := range images {
		g.Go(func() error {
			annotations, err := b.source.GetAnnotations(gctx, img.ID, models.FilterImage)
			if err != nil {
				return fmt.Errorf("annotations for image %q: %w", img.ID, err)
			}
			// Each goroutine owns one slot, so results land by input index.
			perImage[i] = annotations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := Project(entityTypes, images, perImage)
	b.logger.Debug("Graph built",
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("links", len(graph.Links)))
	return graph, nil
}

// Project computes the graph from entity types and the annotations of each
// image, where perImage[i] belongs to images[i]. It does no I/O and the
// result shares no memory with its inputs.
//
// Tags naming an entity type that does not exist are ignored, as are
// parents that do not resolve.
func Project(entityTypes []models.EntityType, images []models.Image, perImage [][]models.Annotation) *Graph {
	hierarchy := ontology.NewHierarchy(entityTypes)

	taggedImages := make(map[string]int, len(entityTypes))
	nodes := make([]models.GraphNode, 0, len(images)+len(entityTypes))

	for i, img := range images {
		var annotations []models.Annotation
		if i < len(perImage) {
			annotations = perImage[i]
		}

		tags := map[string]bool{}
		for _, a := range annotations {
			for _, tag := range a.Tags() {
				if hierarchy.Has(tag) {
					tags[tag] = true
				}
			}
		}
		for tag := range tags {
			taggedImages[tag]++
		}

		nodes = append(nodes, models.GraphNode{
			ID:     img.ID,
			Label:  img.Name,
			Type:   models.GraphNodeImage,
			Degree: len(tags),
		})
	}

	for _, t := range entityTypes {
		degree := taggedImages[t.ID] + hierarchy.ChildCount(t.ID)
		if _, ok := hierarchy.Parent(t.ID); ok {
			degree++
		}
		nodes = append(nodes, models.GraphNode{
			ID:     t.ID,
			Label:  t.DisplayLabel(),
			Type:   models.GraphNodeEntityType,
			Degree: degree,
		})
	}

	var raw []models.GraphLink
	for _, t := range entityTypes {
		if parent, ok := hierarchy.Parent(t.ID); ok {
			raw = append(raw, models.GraphLink{Source: parent.ID, Target: t.ID, Value: 1})
		}
	}
	for i, img := range images {
		if i >= len(perImage) {
			break
		}
		for _, a := range perImage[i] {
			if !a.HasSelector() {
				continue
			}
			for _, tag := range a.Tags() {
				if hierarchy.Has(tag) {
					raw = append(raw, models.GraphLink{Source: img.ID, Target: tag, Value: 1})
				}
			}
		}
	}

	links := mergeLinks(raw)

	graph := &Graph{Nodes: nodes, Links: links}
	graph.MinDegree, graph.MaxDegree = degreeRange(nodes)
	graph.MinLinkWeight, graph.MaxLinkWeight = weightRange(links)
	return graph
}

type linkKey struct{ source, target string }

// mergeLinks collapses links with the same ordered pair, summing values and
// keeping first-seen order.
func mergeLinks(raw []models.GraphLink) []models.GraphLink {
	index := make(map[linkKey]int, len(raw))
	merged := make([]models.GraphLink, 0, len(raw))
	for _, l := range raw {
		key := linkKey{l.Source, l.Target}
		if i, ok := index[key]; ok {
			merged[i].Value += l.Value
			continue
		}
		index[key] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// degreeRange returns 0, 0 for no nodes.
func degreeRange(nodes []models.GraphNode) (int, int) {
	if len(nodes) == 0 {
		return 0, 0
	}
	lo, hi := nodes[0].Degree, nodes[0].Degree
	for _, n := range nodes[1:] {
		lo = min(lo, n.Degree)
		hi = max(hi, n.Degree)
	}
	return lo, hi
}

// weightRange returns 0, 0 for no links.
func weightRange(links []models.GraphLink) (int, int) {
	if len(links) == 0 {
		return 0, 0
	}
	lo, hi := links[0].Value, links[0].Value
	for _, l := range links[1:] {
		lo = min(lo, l.Value)
		hi = max(hi, l.Value)
	}
	return lo, hi
}
