package datamodel

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/apperrors"
	"github.com/immarkus/immarkus-engine/pkg/models"
)

// schemaList returns a pointer to the schema list for kind inside m.
func schemaList(m *models.DataModel, kind models.SchemaKind) (*[]models.MetadataSchema, error) {
	switch kind {
	case models.SchemaKindImage:
		return &m.ImageSchemas, nil
	case models.SchemaKindFolder:
		return &m.FolderSchemas, nil
	default:
		return nil, fmt.Errorf("%w: unknown schema kind %q", apperrors.ErrInvalidSchema, kind)
	}
}

func indexOfSchema(list []models.MetadataSchema, name string) int {
	return slices.IndexFunc(list, func(s models.MetadataSchema) bool { return s.Name == name })
}

// Schemas returns copies of the schemas of kind.
func (s *Store) Schemas(kind models.SchemaKind) ([]models.MetadataSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := schemaList(&s.model, kind)
	if err != nil {
		return nil, err
	}
	return models.CloneSchemas(*list), nil
}

// GetSchema returns the schema of kind with name.
func (s *Store) GetSchema(kind models.SchemaKind, name string) (models.MetadataSchema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := schemaList(&s.model, kind)
	if err != nil {
		return models.MetadataSchema{}, false
	}
	idx := indexOfSchema(*list, name)
	if idx < 0 {
		return models.MetadataSchema{}, false
	}
	return (*list)[idx].Clone(), true
}

// AddSchema appends schema to the list of kind.
func (s *Store) AddSchema(ctx context.Context, kind models.SchemaKind, schema models.MetadataSchema) (models.MetadataSchema, error) {
	if strings.TrimSpace(schema.Name) == "" {
		return models.MetadataSchema{}, fmt.Errorf("%w: name is required", apperrors.ErrInvalidSchema)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.working()
	list, err := schemaList(&next, kind)
	if err != nil {
		return models.MetadataSchema{}, err
	}
	if indexOfSchema(*list, schema.Name) >= 0 {
		return models.MetadataSchema{}, fmt.Errorf("%s schema %q: %w", kind, schema.Name, apperrors.ErrDuplicateName)
	}

	record := schema.Clone()
	*list = append(*list, record)
	if err := s.commit(ctx, next); err != nil {
		return models.MetadataSchema{}, err
	}

	s.logger.Info("Schema added", zap.String("kind", string(kind)), zap.String("name", record.Name))
	return record.Clone(), nil
}

// UpdateSchema replaces the schema of kind sharing schema.Name in place.
func (s *Store) UpdateSchema(ctx context.Context, kind models.SchemaKind, schema models.MetadataSchema) (models.MetadataSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.working()
	list, err := schemaList(&next, kind)
	if err != nil {
		return models.MetadataSchema{}, err
	}
	idx := indexOfSchema(*list, schema.Name)
	if idx < 0 {
		return models.MetadataSchema{}, fmt.Errorf("%s schema %q: %w", kind, schema.Name, apperrors.ErrNotFound)
	}

	record := schema.Clone()
	(*list)[idx] = record
	if err := s.commit(ctx, next); err != nil {
		return models.MetadataSchema{}, err
	}

	s.logger.Info("Schema updated", zap.String("kind", string(kind)), zap.String("name", record.Name))
	return record.Clone(), nil
}

// RemoveSchema deletes the schema of kind with name. Nothing cascades.
func (s *Store) RemoveSchema(ctx context.Context, kind models.SchemaKind, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.working()
	list, err := schemaList(&next, kind)
	if err != nil {
		return err
	}
	idx := indexOfSchema(*list, name)
	if idx < 0 {
		return fmt.Errorf("%s schema %q: %w", kind, name, apperrors.ErrNotFound)
	}

	*list = slices.Delete(*list, idx, idx+1)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.logger.Info("Schema removed", zap.String("kind", string(kind)), zap.String("name", name))
	return nil
}

// AddImageSchema adds an image schema. Names are unique per kind.
func (s *Store) AddImageSchema(ctx context.Context, schema models.MetadataSchema) (models.MetadataSchema, error) {
	return s.AddSchema(ctx, models.SchemaKindImage, schema)
}

// UpdateImageSchema replaces the image schema with the same name.
func (s *Store) UpdateImageSchema(ctx context.Context, schema models.MetadataSchema) (models.MetadataSchema, error) {
	return s.UpdateSchema(ctx, models.SchemaKindImage, schema)
}

// RemoveImageSchema deletes the image schema name.
func (s *Store) RemoveImageSchema(ctx context.Context, name string) error {
	return s.RemoveSchema(ctx, models.SchemaKindImage, name)
}

// GetImageSchema returns a copy of the image schema name.
func (s *Store) GetImageSchema(name string) (models.MetadataSchema, bool) {
	return s.GetSchema(models.SchemaKindImage, name)
}

// AddFolderSchema adds a folder schema. Names are unique per kind.
func (s *Store) AddFolderSchema(ctx context.Context, schema models.MetadataSchema) (models.MetadataSchema, error) {
	return s.AddSchema(ctx, models.SchemaKindFolder, schema)
}

// UpdateFolderSchema replaces the folder schema with the same name.
func (s *Store) UpdateFolderSchema(ctx context.Context, schema models.MetadataSchema) (models.MetadataSchema, error) {
	return s.UpdateSchema(ctx, models.SchemaKindFolder, schema)
}

// RemoveFolderSchema deletes the folder schema name.
func (s *Store) RemoveFolderSchema(ctx context.Context, name string) error {
	return s.RemoveSchema(ctx, models.SchemaKindFolder, name)
}

// GetFolderSchema returns a copy of the folder schema name.
func (s *Store) GetFolderSchema(name string) (models.MetadataSchema, bool) {
	return s.GetSchema(models.SchemaKindFolder, name)
}
