package ontology

import (
	"github.com/immarkus/immarkus-engine/pkg/models"
)

// ResolveProperties returns the property list of the entity type id.
//
// With inherit false the type's own properties are returned as declared. With
// inherit true the list is composed root first: every ancestor contributes
// its own properties, tagged with InheritedFrom, and the type's own
// properties come last, untagged. Composition stops at a parent that does not
// resolve. The second return value is false when id is unknown.
func ResolveProperties(h *Hierarchy, id string, inherit bool) ([]models.PropertyDefinition, bool) {
	t, ok := h.Get(id)
	if !ok {
		return nil, false
	}

	if !inherit {
		return models.CloneProperties(t.Properties), true
	}

	var resolved []models.PropertyDefinition
	for _, ancestor := range h.ParentChain(id) {
		for _, p := range ancestor.Properties {
			inherited := p.Clone()
			inherited.InheritedFrom = ancestor.ID
			resolved = append(resolved, inherited)
		}
	}
	for _, p := range t.Properties {
		own := p.Clone()
		own.InheritedFrom = ""
		resolved = append(resolved, own)
	}
	return resolved, true
}

// ResolveEntityType returns a copy of the entity type id, with its property
// list resolved as in ResolveProperties.
func ResolveEntityType(h *Hierarchy, id string, inherit bool) (models.EntityType, bool) {
	t, ok := h.Get(id)
	if !ok {
		return models.EntityType{}, false
	}

	out := t.Clone()
	props, _ := ResolveProperties(h, id, inherit)
	out.Properties = props
	return out, true
}

// OwnProperties drops resolved copies (those carrying InheritedFrom) from a
// property list, leaving the properties a type declares itself.
func OwnProperties(props []models.PropertyDefinition) []models.PropertyDefinition {
	if props == nil {
		return nil
	}
	own := make([]models.PropertyDefinition, 0, len(props))
	for _, p := range props {
		if p.InheritedFrom == "" {
			own = append(own, p.Clone())
		}
	}
	return own
}
