package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

func text(name string) models.PropertyDefinition {
	return models.PropertyDefinition{Name: name, Kind: models.TextProperty{}}
}

func ids(types []models.EntityType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.ID)
	}
	return out
}

func sampleTypes() []models.EntityType {
	return []models.EntityType{
		{ID: "A", Properties: []models.PropertyDefinition{text("p1")}},
		{ID: "B", ParentID: "A", Properties: []models.PropertyDefinition{text("p2")}},
		{ID: "C", ParentID: "B", Properties: []models.PropertyDefinition{text("p3")}},
		{ID: "D", ParentID: "A"},
		{ID: "E"},
	}
}

func TestHierarchy_ChildTypes(t *testing.T) {
	h := NewHierarchy(sampleTypes())

	assert.ElementsMatch(t, []string{"B", "D"}, ids(h.ChildTypes("A")))
	assert.Equal(t, []string{"C"}, ids(h.ChildTypes("B")))
	assert.Empty(t, h.ChildTypes("C"))
	assert.Empty(t, h.ChildTypes("unknown"))
	assert.Equal(t, 2, h.ChildCount("A"))
}

func TestHierarchy_ParentChain(t *testing.T) {
	h := NewHierarchy(sampleTypes())

	assert.Equal(t, []string{"A", "B"}, ids(h.ParentChain("C")))
	assert.Empty(t, h.ParentChain("A"))
	assert.Empty(t, h.ParentChain("unknown"))
}

func TestHierarchy_ParentChainStopsAtDanglingParent(t *testing.T) {
	types := []models.EntityType{
		{ID: "B", ParentID: "missing"},
		{ID: "C", ParentID: "B"},
	}
	h := NewHierarchy(types)

	assert.Equal(t, []string{"B"}, ids(h.ParentChain("C")))
	_, ok := h.Parent("B")
	assert.False(t, ok)
}

func TestHierarchy_RebuildReflectsNewList(t *testing.T) {
	types := sampleTypes()
	h := NewHierarchy(types)
	require.Len(t, h.ChildTypes("A"), 2)

	h.Rebuild(RemoveMissingParentIDs(types[1:]))
	assert.Empty(t, h.ChildTypes("A"))
	assert.Equal(t, []string{"B", "D", "E"}, ids(h.Roots()))
}

func TestHierarchy_Descendants(t *testing.T) {
	h := NewHierarchy(sampleTypes())
	assert.Equal(t, []string{"B", "D", "C"}, ids(h.Descendants("A")))
	assert.Empty(t, h.Descendants("E"))
}

func TestHierarchy_WouldCycle(t *testing.T) {
	h := NewHierarchy(sampleTypes())

	tests := []struct {
		name     string
		id       string
		parentID string
		want     bool
	}{
		{"no parent", "A", "", false},
		{"self parent", "A", "A", true},
		{"parent is descendant", "A", "C", true},
		{"parent is direct child", "B", "C", true},
		{"sibling subtree", "D", "C", false},
		{"unrelated root", "E", "A", false},
		{"new type under existing", "F", "C", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.WouldCycle(tt.id, tt.parentID))
		})
	}
}

func TestResolveProperties_InheritanceOrder(t *testing.T) {
	h := NewHierarchy(sampleTypes())

	props, ok := ResolveProperties(h, "C", true)
	require.True(t, ok)
	require.Len(t, props, 3)

	assert.Equal(t, "p1", props[0].Name)
	assert.Equal(t, "A", props[0].InheritedFrom)
	assert.Equal(t, "p2", props[1].Name)
	assert.Equal(t, "B", props[1].InheritedFrom)
	assert.Equal(t, "p3", props[2].Name)
	assert.Empty(t, props[2].InheritedFrom)
}

func TestResolveProperties_WithoutInheritance(t *testing.T) {
	h := NewHierarchy(sampleTypes())

	props, ok := ResolveProperties(h, "C", false)
	require.True(t, ok)
	require.Len(t, props, 1)
	assert.Equal(t, "p3", props[0].Name)
	assert.Empty(t, props[0].InheritedFrom)
}

func TestResolveProperties_UnknownType(t *testing.T) {
	h := NewHierarchy(sampleTypes())
	props, ok := ResolveProperties(h, "nope", true)
	assert.False(t, ok)
	assert.Nil(t, props)
}

func TestResolveProperties_DoesNotMutateSource(t *testing.T) {
	types := sampleTypes()
	h := NewHierarchy(types)

	_, ok := ResolveProperties(h, "C", true)
	require.True(t, ok)
	assert.Empty(t, types[0].Properties[0].InheritedFrom)
}

func TestResolveEntityType(t *testing.T) {
	h := NewHierarchy(sampleTypes())

	resolved, ok := ResolveEntityType(h, "B", true)
	require.True(t, ok)
	assert.Equal(t, "B", resolved.ID)
	assert.Equal(t, "A", resolved.ParentID)
	require.Len(t, resolved.Properties, 2)
	assert.Equal(t, "A", resolved.Properties[0].InheritedFrom)
}

func TestOwnProperties(t *testing.T) {
	props := []models.PropertyDefinition{
		{Name: "inherited", InheritedFrom: "A"},
		{Name: "own"},
	}
	own := OwnProperties(props)
	require.Len(t, own, 1)
	assert.Equal(t, "own", own[0].Name)
}

func TestRepairDataModel(t *testing.T) {
	input := []models.EntityType{
		{ID: ""},
		{ID: "A"},
		{ID: "A", Label: "duplicate"},
		{ID: "B", ParentID: "gone"},
		{ID: "C", ParentID: "C"},
		{ID: "D", ParentID: "A"},
		{ID: "X", ParentID: "Y"},
		{ID: "Y", ParentID: "X"},
	}

	repaired, report := RepairDataModelWithReport(input)

	assert.Equal(t, []string{"A", "B", "C", "D", "X", "Y"}, ids(repaired))
	assert.Empty(t, repaired[0].Label)
	assert.Empty(t, repaired[1].ParentID)
	assert.Empty(t, repaired[2].ParentID)
	assert.Equal(t, "A", repaired[3].ParentID)

	// The first cycle member visited loses its parent; the other keeps it.
	assert.Empty(t, repaired[4].ParentID)
	assert.Equal(t, "X", repaired[5].ParentID)

	assert.True(t, report.Changed())
	assert.Equal(t, 1, report.DroppedEmpty)
	assert.Equal(t, []string{"A"}, report.DroppedDuplicate)
	assert.ElementsMatch(t, []string{"B", "C", "X"}, report.ClearedParents)

	// Input untouched.
	assert.Equal(t, "gone", input[3].ParentID)
}

func TestRepairDataModel_Idempotent(t *testing.T) {
	inputs := [][]models.EntityType{
		nil,
		sampleTypes(),
		{{ID: "A", ParentID: "B"}, {ID: "B", ParentID: "C"}, {ID: "C", ParentID: "A"}},
		{{ID: ""}, {ID: "A", ParentID: "A"}, {ID: "A"}, {ID: "B", ParentID: "nope"}},
	}

	for _, input := range inputs {
		once := RepairDataModel(input)
		twice, report := RepairDataModelWithReport(once)
		assert.Equal(t, once, twice)
		assert.False(t, report.Changed())
	}
}

func TestRepairDataModel_ResultIsAcyclic(t *testing.T) {
	input := []models.EntityType{
		{ID: "A", ParentID: "C"},
		{ID: "B", ParentID: "A"},
		{ID: "C", ParentID: "B"},
		{ID: "D", ParentID: "C"},
	}
	repaired := RepairDataModel(input)
	h := NewHierarchy(repaired)

	for _, typ := range repaired {
		for _, ancestor := range h.ParentChain(typ.ID) {
			assert.NotEqual(t, typ.ID, ancestor.ID)
		}
	}
	assert.Len(t, h.Roots(), 1)
}

func TestRemoveMissingParentIDs(t *testing.T) {
	input := []models.EntityType{
		{ID: "B", ParentID: "A", Label: "b"},
		{ID: "C", ParentID: "B"},
	}

	out := RemoveMissingParentIDs(input)
	require.Len(t, out, 2)
	assert.Empty(t, out[0].ParentID)
	assert.Equal(t, "b", out[0].Label)
	assert.Equal(t, "B", out[1].ParentID)
	assert.Equal(t, "A", input[0].ParentID)
}

func TestRepairSchemas(t *testing.T) {
	out := RepairSchemas([]models.MetadataSchema{
		{Name: "default"},
		{Name: " "},
		{Name: "default"},
		{Name: "dating"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "default", out[0].Name)
	assert.Equal(t, "dating", out[1].Name)
}
