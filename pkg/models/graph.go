package models

// GraphNodeType tells images apart from entity classes in the knowledge graph.
type GraphNodeType string

const (
	GraphNodeImage      GraphNodeType = "IMAGE"
	GraphNodeEntityType GraphNodeType = "ENTITY_TYPE"
)

// GraphNode is a node of the derived knowledge graph.
type GraphNode struct {
	ID     string        `json:"id" yaml:"id"`
	Label  string        `json:"label" yaml:"label"`
	Type   GraphNodeType `json:"type" yaml:"type"`
	Degree int           `json:"degree" yaml:"degree"`
}

// GraphLink is a weighted, directed link. Value counts the underlying edges
// that collapsed onto the same (Source, Target) pair.
type GraphLink struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Value  int    `json:"value" yaml:"value"`
}
