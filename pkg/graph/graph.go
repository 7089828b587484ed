// Package graph projects the data model and image annotations into the
// weighted node/link graph shown by the knowledge graph view.
package graph

import (
	"fmt"

	"github.com/immarkus/immarkus-engine/pkg/apperrors"
	"github.com/immarkus/immarkus-engine/pkg/models"
)

// Graph is a derived, render-ready graph. It is never persisted and callers
// may mutate the returned slices freely.
type Graph struct {
	Nodes         []models.GraphNode `json:"nodes" yaml:"nodes"`
	Links         []models.GraphLink `json:"links" yaml:"links"`
	MinDegree     int                `json:"minDegree" yaml:"minDegree"`
	MaxDegree     int                `json:"maxDegree" yaml:"maxDegree"`
	MinLinkWeight int                `json:"minLinkWeight" yaml:"minLinkWeight"`
	MaxLinkWeight int                `json:"maxLinkWeight" yaml:"maxLinkWeight"`
}

// Node returns the node with id.
func (g *Graph) Node(id string) (models.GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return models.GraphNode{}, false
}

// Degrees maps node ids to their degree.
func (g *Graph) Degrees() map[string]int {
	out := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.ID] = n.Degree
	}
	return out
}

// LinkedNodes returns the nodes sharing a link with id, in either direction,
// in link order. Self links and repeats are skipped.
func (g *Graph) LinkedNodes(id string) []models.GraphNode {
	byID := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		byID[n.ID] = i
	}

	seen := map[string]bool{id: true}
	out := []models.GraphNode{}
	for _, l := range g.Links {
		var other string
		switch id {
		case l.Source:
			other = l.Target
		case l.Target:
			other = l.Source
		default:
			continue
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		if i, ok := byID[other]; ok {
			out = append(out, g.Nodes[i])
		}
	}
	return out
}

// Neighbourhood returns the nodes within hops links of id. Only a single hop
// is implemented; larger values fail with apperrors.ErrUnsupported.
func (g *Graph) Neighbourhood(id string, hops int) ([]models.GraphNode, error) {
	switch {
	case hops < 1:
		return []models.GraphNode{}, nil
	case hops == 1:
		return g.LinkedNodes(id), nil
	default:
		return nil, fmt.Errorf("neighbourhood of %d hops: %w", hops, apperrors.ErrUnsupported)
	}
}
