// Package annotations persists W3C-style annotations, one document per image,
// and keeps them consistent with the entity classes of the data model.
package annotations

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/immarkus/immarkus-engine/pkg/apperrors"
	"github.com/immarkus/immarkus-engine/pkg/docstore"
	"github.com/immarkus/immarkus-engine/pkg/models"
)

// Catalog resolves image and folder ids.
type Catalog interface {
	Image(id string) (models.Image, bool)
	Folder(id string) (models.Folder, bool)
}

// EntityTypes tells whether an entity class exists.
type EntityTypes interface {
	GetEntityType(id string, inherit bool) (models.EntityType, bool)
}

// Store reads and writes image annotations. Read documents are cached per
// image; every read re-checks tags against the current data model.
type Store struct {
	docs    docstore.Store
	catalog Catalog
	model   EntityTypes
	logger  *zap.Logger

	// writeMu serialises read-modify-write cycles on annotation documents.
	writeMu sync.Mutex

	mu    sync.Mutex
	cache map[string][]models.Annotation
	group singleflight.Group
}

func NewStore(docs docstore.Store, catalog Catalog, model EntityTypes, logger *zap.Logger) *Store {
	return &Store{
		docs:    docs,
		catalog: catalog,
		model:   model,
		logger:  logger.Named("annotation-store"),
		cache:   make(map[string][]models.Annotation),
	}
}

func annotationsKey(imageID string) string {
	return "annotations/" + imageID + ".json"
}

func folderMetadataKey(folderID string) string {
	return "folders/" + folderID + ".meta.json"
}

func (s *Store) known(id string) bool {
	_, ok := s.model.GetEntityType(id, false)
	return ok
}

// load returns the repaired annotations of an image, reading the document on
// a cache miss. The returned slice is owned by the caller.
func (s *Store) load(ctx context.Context, imageID string) ([]models.Annotation, error) {
	if _, ok := s.catalog.Image(imageID); !ok {
		return nil, fmt.Errorf("image %q: %w", imageID, apperrors.ErrNotFound)
	}

	s.mu.Lock()
	cached, ok := s.cache[imageID]
	if ok {
		// The data model may have changed since the document was cached.
		repaired := RepairAnnotations(cached, s.known)
		s.cache[imageID] = repaired
		s.mu.Unlock()
		return cloneAll(repaired), nil
	}
	s.mu.Unlock()

	// Concurrent misses for the same image share one document read. The
	// shared read ignores the first caller's cancellation; each caller stops
	// waiting when its own ctx ends.
	readCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(imageID, func() (any, error) {
		var stored []models.Annotation
		if _, err := docstore.ReadJSON(readCtx, s.docs, annotationsKey(imageID), &stored); err != nil {
			return nil, fmt.Errorf("read annotations of image %q: %w", imageID, err)
		}
		repaired := RepairAnnotations(stored, s.known)

		s.mu.Lock()
		defer s.mu.Unlock()
		// A concurrent write may have filled the cache while we were reading.
		if current, ok := s.cache[imageID]; ok {
			return current, nil
		}
		s.cache[imageID] = repaired
		return repaired, nil
	})

	var v any
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v = res.Val
	}
	return cloneAll(v.([]models.Annotation)), nil
}

// GetAnnotations returns the annotations of an image that match filter.
func (s *Store) GetAnnotations(ctx context.Context, imageID string, filter models.AnnotationFilter) ([]models.Annotation, error) {
	all, err := s.load(ctx, imageID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Annotation, 0, len(all))
	for _, a := range all {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// CountAnnotations counts the annotations of an image, only those with a
// selector when withSelectorOnly is set.
func (s *Store) CountAnnotations(ctx context.Context, imageID string, withSelectorOnly bool) (int, error) {
	filter := models.FilterBoth
	if withSelectorOnly {
		filter = models.FilterImage
	}
	annotations, err := s.GetAnnotations(ctx, imageID, filter)
	if err != nil {
		return 0, err
	}
	return len(annotations), nil
}

// UpsertAnnotation replaces the annotation with the same id or appends it.
// An annotation without id gets a new one.
func (s *Store) UpsertAnnotation(ctx context.Context, imageID string, annotation models.Annotation) (models.Annotation, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.load(ctx, imageID)
	if err != nil {
		return models.Annotation{}, err
	}

	record := annotation.Clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Type == "" {
		record.Type = "Annotation"
	}

	idx := slices.IndexFunc(current, func(a models.Annotation) bool { return a.ID == record.ID })
	if idx >= 0 {
		current[idx] = record
	} else {
		current = append(current, record)
	}

	if err := s.save(ctx, imageID, current); err != nil {
		return models.Annotation{}, err
	}

	s.logger.Debug("Annotation saved",
		zap.String("image_id", imageID),
		zap.String("annotation_id", record.ID),
		zap.Bool("created", idx < 0))
	return record.Clone(), nil
}

// DeleteAnnotation removes the annotation with annotationID from an image.
func (s *Store) DeleteAnnotation(ctx context.Context, imageID, annotationID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.load(ctx, imageID)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(current, func(a models.Annotation) bool { return a.ID == annotationID })
	if idx < 0 {
		return fmt.Errorf("annotation %q on image %q: %w", annotationID, imageID, apperrors.ErrNotFound)
	}
	next := slices.Delete(current, idx, idx+1)

	if err := s.save(ctx, imageID, next); err != nil {
		return err
	}

	s.logger.Debug("Annotation deleted", zap.String("image_id", imageID), zap.String("annotation_id", annotationID))
	return nil
}

// save writes the whole annotation list of an image and updates the cache
// only once the write succeeded.
func (s *Store) save(ctx context.Context, imageID string, annotations []models.Annotation) error {
	if err := docstore.WriteJSON(ctx, s.docs, annotationsKey(imageID), annotations); err != nil {
		s.logger.Error("Failed to write annotations", zap.String("image_id", imageID), zap.Error(err))
		return fmt.Errorf("%w: %w", apperrors.ErrSaveFailed, err)
	}

	s.mu.Lock()
	s.cache[imageID] = annotations
	s.mu.Unlock()
	return nil
}

// GetFolderMetadata returns the metadata annotation of a folder. It reports
// false when the folder has none yet.
func (s *Store) GetFolderMetadata(ctx context.Context, folderID string) (models.Annotation, bool, error) {
	if _, ok := s.catalog.Folder(folderID); !ok {
		return models.Annotation{}, false, fmt.Errorf("folder %q: %w", folderID, apperrors.ErrNotFound)
	}

	var a models.Annotation
	found, err := docstore.ReadJSON(ctx, s.docs, folderMetadataKey(folderID), &a)
	if err != nil {
		return models.Annotation{}, false, fmt.Errorf("read metadata of folder %q: %w", folderID, err)
	}
	return a, found, nil
}

// UpsertFolderMetadata replaces the metadata annotation of a folder.
func (s *Store) UpsertFolderMetadata(ctx context.Context, folderID string, annotation models.Annotation) (models.Annotation, error) {
	if _, ok := s.catalog.Folder(folderID); !ok {
		return models.Annotation{}, fmt.Errorf("folder %q: %w", folderID, apperrors.ErrNotFound)
	}

	record := annotation.Clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Type == "" {
		record.Type = "Annotation"
	}

	if err := docstore.WriteJSON(ctx, s.docs, folderMetadataKey(folderID), record); err != nil {
		s.logger.Error("Failed to write folder metadata", zap.String("folder_id", folderID), zap.Error(err))
		return models.Annotation{}, fmt.Errorf("%w: %w", apperrors.ErrSaveFailed, err)
	}
	return record, nil
}

func cloneAll(annotations []models.Annotation) []models.Annotation {
	out := make([]models.Annotation, len(annotations))
	for i, a := range annotations {
		out[i] = a.Clone()
	}
	return out
}
