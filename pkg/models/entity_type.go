package models

// DataModelKey is the document key under which the whole data model is stored.
const DataModelKey = "_immarkus.model.json"

// EntityType is a node in the ontology of things annotations can be tagged with.
// ParentID, when set, names the single supertype.
type EntityType struct {
	ID         string               `json:"id" validate:"required"`
	Label      string               `json:"label,omitempty"`
	Color      string               `json:"color,omitempty"`
	ParentID   string               `json:"parentId,omitempty"`
	Properties []PropertyDefinition `json:"properties,omitempty" validate:"dive"`
}

// DisplayLabel returns the label, falling back to the id.
func (t EntityType) DisplayLabel() string {
	if t.Label != "" {
		return t.Label
	}
	return t.ID
}

// Clone returns a deep copy.
func (t EntityType) Clone() EntityType {
	t.Properties = CloneProperties(t.Properties)
	return t
}

// MetadataSchema is a flat, named list of property definitions applied to
// images or folders. Schemas do not inherit from each other.
type MetadataSchema struct {
	Name       string               `json:"name" validate:"required"`
	Properties []PropertyDefinition `json:"properties,omitempty" validate:"dive"`
}

// Clone returns a deep copy.
func (s MetadataSchema) Clone() MetadataSchema {
	s.Properties = CloneProperties(s.Properties)
	return s
}

// SchemaKind distinguishes image schemas from folder schemas.
type SchemaKind string

const (
	SchemaKindImage  SchemaKind = "image"
	SchemaKindFolder SchemaKind = "folder"
)

// Valid reports whether k is a known schema kind.
func (k SchemaKind) Valid() bool {
	return k == SchemaKindImage || k == SchemaKindFolder
}

// DataModel is the persisted aggregate. It is always read and written as one document.
type DataModel struct {
	EntityTypes   []EntityType     `json:"entityTypes"`
	ImageSchemas  []MetadataSchema `json:"imageSchemas"`
	FolderSchemas []MetadataSchema `json:"folderSchemas"`
}

// Clone returns a deep copy of the whole model.
func (m DataModel) Clone() DataModel {
	return DataModel{
		EntityTypes:   CloneEntityTypes(m.EntityTypes),
		ImageSchemas:  CloneSchemas(m.ImageSchemas),
		FolderSchemas: CloneSchemas(m.FolderSchemas),
	}
}

// CloneEntityTypes deep-copies a list of entity types. The result is never nil.
func CloneEntityTypes(types []EntityType) []EntityType {
	out := make([]EntityType, len(types))
	for i, t := range types {
		out[i] = t.Clone()
	}
	return out
}

// CloneSchemas deep-copies a list of schemas. The result is never nil.
func CloneSchemas(schemas []MetadataSchema) []MetadataSchema {
	out := make([]MetadataSchema, len(schemas))
	for i, s := range schemas {
		out[i] = s.Clone()
	}
	return out
}
