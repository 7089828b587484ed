// Package ontology holds the entity type hierarchy, property inheritance, and
// the integrity repair passes that keep the hierarchy a forest.
package ontology

import (
	"github.com/immarkus/immarkus-engine/pkg/models"
)

// Hierarchy is the derived tree over an entity type list. It is rebuilt from
// the authoritative list after every structural change and never mutates it.
type Hierarchy struct {
	types    []models.EntityType
	byID     map[string]int
	children map[string][]int
}

// NewHierarchy builds a hierarchy over types.
func NewHierarchy(types []models.EntityType) *Hierarchy {
	h := &Hierarchy{}
	h.Rebuild(types)
	return h
}

// Rebuild recomputes the id index and parent->children adjacency.
func (h *Hierarchy) Rebuild(types []models.EntityType) {
	h.types = types
	h.byID = make(map[string]int, len(types))
	h.children = make(map[string][]int)

	for i, t := range types {
		if _, exists := h.byID[t.ID]; !exists {
			h.byID[t.ID] = i
		}
	}
	for i, t := range types {
		if t.ParentID == "" || t.ParentID == t.ID {
			continue
		}
		if _, ok := h.byID[t.ParentID]; ok {
			h.children[t.ParentID] = append(h.children[t.ParentID], i)
		}
	}
}

// Len returns the number of entity types.
func (h *Hierarchy) Len() int {
	return len(h.types)
}

// Get returns the entity type with the given id.
func (h *Hierarchy) Get(id string) (models.EntityType, bool) {
	i, ok := h.byID[id]
	if !ok {
		return models.EntityType{}, false
	}
	return h.types[i], true
}

// Has reports whether id is a known entity type.
func (h *Hierarchy) Has(id string) bool {
	_, ok := h.byID[id]
	return ok
}

// Parent returns the resolved parent of id. Dangling parents resolve to false.
func (h *Hierarchy) Parent(id string) (models.EntityType, bool) {
	t, ok := h.Get(id)
	if !ok || t.ParentID == "" || t.ParentID == id {
		return models.EntityType{}, false
	}
	return h.Get(t.ParentID)
}

// ChildTypes returns the direct children of id, empty when id has none or is unknown.
func (h *Hierarchy) ChildTypes(id string) []models.EntityType {
	idx := h.children[id]
	out := make([]models.EntityType, 0, len(idx))
	for _, i := range idx {
		out = append(out, h.types[i].Clone())
	}
	return out
}

// ChildCount returns the number of direct children of id.
func (h *Hierarchy) ChildCount(id string) int {
	return len(h.children[id])
}

// ParentChain returns the ancestors of id, root first, excluding id itself.
// The walk stops at a parent that does not resolve. It never takes more steps
// than there are types, so a corrupted cyclic list yields a truncated chain
// rather than a hang.
func (h *Hierarchy) ParentChain(id string) []models.EntityType {
	var chain []models.EntityType
	current := id
	for steps := 0; steps < len(h.types); steps++ {
		parent, ok := h.Parent(current)
		if !ok {
			break
		}
		chain = append(chain, parent)
		current = parent.ID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Roots returns the types without a resolvable parent, in list order.
func (h *Hierarchy) Roots() []models.EntityType {
	var roots []models.EntityType
	for _, t := range h.types {
		if _, ok := h.Parent(t.ID); !ok {
			roots = append(roots, t.Clone())
		}
	}
	return roots
}

// Descendants returns every type below id, breadth first.
func (h *Hierarchy) Descendants(id string) []models.EntityType {
	var out []models.EntityType
	visited := map[string]bool{id: true}
	queue := []string{id}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, i := range h.children[current] {
			child := h.types[i]
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			out = append(out, child.Clone())
			queue = append(queue, child.ID)
		}
	}
	return out
}

// WouldCycle reports whether giving id the parent parentID would make id its
// own ancestor. The walk uses the current parent pointers of parentID's chain.
func (h *Hierarchy) WouldCycle(id, parentID string) bool {
	if parentID == "" {
		return false
	}
	if parentID == id {
		return true
	}

	current := parentID
	for steps := 0; steps <= len(h.types); steps++ {
		parent, ok := h.Parent(current)
		if !ok {
			return false
		}
		if parent.ID == id {
			return true
		}
		current = parent.ID
	}
	// The existing chain is itself cyclic; treat any attachment to it as cyclic.
	return true
}
