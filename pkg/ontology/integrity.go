package ontology

import (
	"strings"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

// RepairReport lists what a repair pass changed.
type RepairReport struct {
	DroppedEmpty     int      // records without an id
	DroppedDuplicate []string // ids seen more than once; the first record wins
	ClearedParents   []string // ids whose parent reference was cleared
}

// Changed reports whether the repair altered anything.
func (r RepairReport) Changed() bool {
	return r.DroppedEmpty > 0 || len(r.DroppedDuplicate) > 0 || len(r.ClearedParents) > 0
}

// RepairDataModel returns a copy of types that satisfies the hierarchy
// invariants: non-empty unique ids, no self parents, no dangling parents and
// no parent cycles. The input is not modified.
func RepairDataModel(types []models.EntityType) []models.EntityType {
	repaired, _ := RepairDataModelWithReport(types)
	return repaired
}

// RepairDataModelWithReport is RepairDataModel that also reports what changed.
//
// Cycles are broken deterministically: types are visited in list order and a
// type whose ancestor walk leads back to itself loses its parent reference.
func RepairDataModelWithReport(types []models.EntityType) ([]models.EntityType, RepairReport) {
	var report RepairReport

	kept := make([]models.EntityType, 0, len(types))
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		if strings.TrimSpace(t.ID) == "" {
			report.DroppedEmpty++
			continue
		}
		if seen[t.ID] {
			report.DroppedDuplicate = append(report.DroppedDuplicate, t.ID)
			continue
		}
		seen[t.ID] = true
		kept = append(kept, t.Clone())
	}

	parentOf := make(map[string]string, len(kept))
	for i := range kept {
		t := &kept[i]
		if t.ParentID != "" && (t.ParentID == t.ID || !seen[t.ParentID]) {
			t.ParentID = ""
			report.ClearedParents = append(report.ClearedParents, t.ID)
		}
		parentOf[t.ID] = t.ParentID
	}

	for i := range kept {
		t := &kept[i]
		if t.ParentID == "" {
			continue
		}
		if leadsBackTo(t.ID, parentOf, len(kept)) {
			t.ParentID = ""
			parentOf[t.ID] = ""
			report.ClearedParents = append(report.ClearedParents, t.ID)
		}
	}

	return kept, report
}

// leadsBackTo reports whether walking up from id's parent returns to id.
func leadsBackTo(id string, parentOf map[string]string, limit int) bool {
	current := parentOf[id]
	for steps := 0; current != "" && steps <= limit; steps++ {
		if current == id {
			return true
		}
		current = parentOf[current]
	}
	return false
}

// RemoveMissingParentIDs returns a copy of types where every parent reference
// to an id not present in the list is cleared. Nothing else is changed.
func RemoveMissingParentIDs(types []models.EntityType) []models.EntityType {
	present := make(map[string]bool, len(types))
	for _, t := range types {
		present[t.ID] = true
	}

	out := make([]models.EntityType, len(types))
	for i, t := range types {
		c := t.Clone()
		if c.ParentID != "" && !present[c.ParentID] {
			c.ParentID = ""
		}
		out[i] = c
	}
	return out
}

// RepairSchemas drops schemas without a name and later duplicates by name.
func RepairSchemas(schemas []models.MetadataSchema) []models.MetadataSchema {
	out := make([]models.MetadataSchema, 0, len(schemas))
	seen := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		if strings.TrimSpace(s.Name) == "" || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, s.Clone())
	}
	return out
}
