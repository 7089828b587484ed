// Package datamodel owns the mutable DataModel aggregate: entity types and
// metadata schemas, the derived hierarchy over them, and their persistence as
// a single document.
package datamodel

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/apperrors"
	"github.com/immarkus/immarkus-engine/pkg/docstore"
	"github.com/immarkus/immarkus-engine/pkg/models"
	"github.com/immarkus/immarkus-engine/pkg/ontology"
)

// Store is the single source of truth for the data model. Mutators are
// serialised by the store and each successful one writes the whole document
// exactly once before returning.
type Store struct {
	mu        sync.RWMutex
	docs      docstore.Store
	logger    *zap.Logger
	model     models.DataModel
	hierarchy *ontology.Hierarchy
}

// Load reads the persisted model (an absent document is an empty model),
// repairs it and builds the hierarchy. Load never writes; a repaired model is
// persisted by the next successful mutation.
func Load(ctx context.Context, docs docstore.Store, logger *zap.Logger) (*Store, error) {
	logger = logger.Named("datamodel-store")

	var model models.DataModel
	found, err := docstore.ReadJSON(ctx, docs, models.DataModelKey, &model)
	if err != nil {
		return nil, fmt.Errorf("load data model: %w", err)
	}

	repaired, report := ontology.RepairDataModelWithReport(model.EntityTypes)
	if report.Changed() {
		logger.Warn("Repaired persisted data model",
			zap.Int("dropped_empty", report.DroppedEmpty),
			zap.Strings("dropped_duplicate", report.DroppedDuplicate),
			zap.Strings("cleared_parents", report.ClearedParents))
	}
	model.EntityTypes = repaired
	model.ImageSchemas = ontology.RepairSchemas(model.ImageSchemas)
	model.FolderSchemas = ontology.RepairSchemas(model.FolderSchemas)

	if unknown := unknownPropertyTypes(model); len(unknown) > 0 {
		logger.Warn("Persisted properties with unknown types are read as text",
			zap.Strings("properties", unknown))
	}

	logger.Info("Data model loaded",
		zap.Bool("found", found),
		zap.Int("entity_types", len(model.EntityTypes)),
		zap.Int("image_schemas", len(model.ImageSchemas)),
		zap.Int("folder_schemas", len(model.FolderSchemas)))

	return &Store{
		docs:      docs,
		logger:    logger,
		model:     model,
		hierarchy: ontology.NewHierarchy(model.EntityTypes),
	}, nil
}

// unknownPropertyTypes names every property of m stored with an
// unrecognised type, prefixed by its owner.
func unknownPropertyTypes(m models.DataModel) []string {
	var out []string
	for _, t := range m.EntityTypes {
		for _, p := range models.UnknownPropertyTypes(t.Properties) {
			out = append(out, t.ID+"."+p)
		}
	}
	for _, schemas := range [][]models.MetadataSchema{m.ImageSchemas, m.FolderSchemas} {
		for _, sc := range schemas {
			for _, p := range models.UnknownPropertyTypes(sc.Properties) {
				out = append(out, sc.Name+"."+p)
			}
		}
	}
	return out
}

// commit persists next and only then makes it the live state. The caller
// holds the write lock.
func (s *Store) commit(ctx context.Context, next models.DataModel) error {
	hierarchy := ontology.NewHierarchy(next.EntityTypes)

	if err := docstore.WriteJSON(ctx, s.docs, models.DataModelKey, next); err != nil {
		s.logger.Error("Failed to persist data model", zap.Error(err))
		return fmt.Errorf("%w: %w", apperrors.ErrSaveFailed, err)
	}

	s.model = next
	s.hierarchy = hierarchy
	return nil
}

// working returns a copy of the live model for a mutator to edit.
func (s *Store) working() models.DataModel {
	return s.model.Clone()
}

func validateEntityType(t models.EntityType) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: id is required", apperrors.ErrInvalidEntityType)
	}
	return nil
}

// checkParent rejects parents that are unknown or would close a cycle.
func (s *Store) checkParent(t models.EntityType) error {
	if t.ParentID == "" {
		return nil
	}
	if t.ParentID == t.ID {
		return fmt.Errorf("entity type %q cannot be its own parent: %w", t.ID, apperrors.ErrCyclicParent)
	}
	if !s.hierarchy.Has(t.ParentID) {
		return fmt.Errorf("parent entity type %q: %w", t.ParentID, apperrors.ErrNotFound)
	}
	if s.hierarchy.WouldCycle(t.ID, t.ParentID) {
		return fmt.Errorf("entity type %q under %q: %w", t.ID, t.ParentID, apperrors.ErrCyclicParent)
	}
	return nil
}

// AddEntityType inserts t at the end of the list.
func (s *Store) AddEntityType(ctx context.Context, t models.EntityType) (models.EntityType, error) {
	if err := validateEntityType(t); err != nil {
		return models.EntityType{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hierarchy.Has(t.ID) {
		return models.EntityType{}, fmt.Errorf("entity type %q: %w", t.ID, apperrors.ErrDuplicateID)
	}
	if err := s.checkParent(t); err != nil {
		return models.EntityType{}, err
	}

	record := t.Clone()
	record.Properties = ontology.OwnProperties(record.Properties)

	next := s.working()
	next.EntityTypes = append(next.EntityTypes, record)
	if err := s.commit(ctx, next); err != nil {
		return models.EntityType{}, err
	}

	s.logger.Info("Entity type added", zap.String("id", record.ID), zap.String("parent_id", record.ParentID))
	return record.Clone(), nil
}

// UpdateEntityType replaces the record sharing t.ID, keeping its position.
func (s *Store) UpdateEntityType(ctx context.Context, t models.EntityType) (models.EntityType, error) {
	if err := validateEntityType(t); err != nil {
		return models.EntityType{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.model.EntityTypes, func(e models.EntityType) bool { return e.ID == t.ID })
	if idx < 0 {
		return models.EntityType{}, fmt.Errorf("entity type %q: %w", t.ID, apperrors.ErrNotFound)
	}
	if err := s.checkParent(t); err != nil {
		return models.EntityType{}, err
	}

	record := t.Clone()
	record.Properties = ontology.OwnProperties(record.Properties)

	next := s.working()
	next.EntityTypes[idx] = record
	if err := s.commit(ctx, next); err != nil {
		return models.EntityType{}, err
	}

	s.logger.Info("Entity type updated", zap.String("id", record.ID), zap.String("parent_id", record.ParentID))
	return record.Clone(), nil
}

// RemoveEntityType deletes the type with id. Its children become roots.
func (s *Store) RemoveEntityType(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hierarchy.Has(id) {
		return fmt.Errorf("entity type %q: %w", id, apperrors.ErrNotFound)
	}

	next := s.working()
	next.EntityTypes = slices.DeleteFunc(next.EntityTypes, func(e models.EntityType) bool { return e.ID == id })
	next.EntityTypes = ontology.RemoveMissingParentIDs(next.EntityTypes)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.logger.Info("Entity type removed", zap.String("id", id))
	return nil
}

// GetEntityType returns a copy of the type with id. With inherit set, the
// properties are the resolved list with ancestors' properties first.
func (s *Store) GetEntityType(id string, inherit bool) (models.EntityType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ontology.ResolveEntityType(s.hierarchy, id, inherit)
}

// EntityTypes returns copies of all entity types in list order.
func (s *Store) EntityTypes() []models.EntityType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneEntityTypes(s.model.EntityTypes)
}

// ChildTypes returns the direct children of id.
func (s *Store) ChildTypes(id string) []models.EntityType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hierarchy.ChildTypes(id)
}

// ParentChain returns the ancestors of id, root first.
func (s *Store) ParentChain(id string) []models.EntityType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hierarchy.ParentChain(id)
}

// Snapshot returns a deep copy of the whole model.
func (s *Store) Snapshot() models.DataModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.Clone()
}

// Save writes the current model. It is how a repaired model gets persisted
// without an unrelated mutation.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, s.working())
}
