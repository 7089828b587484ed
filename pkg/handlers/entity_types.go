package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

// EntityTypeStore is the part of the data model store the entity type
// endpoints use.
type EntityTypeStore interface {
	AddEntityType(ctx context.Context, t models.EntityType) (models.EntityType, error)
	UpdateEntityType(ctx context.Context, t models.EntityType) (models.EntityType, error)
	RemoveEntityType(ctx context.Context, id string) error
	GetEntityType(id string, inherit bool) (models.EntityType, bool)
	EntityTypes() []models.EntityType
	ChildTypes(id string) []models.EntityType
}

// EntityTypeListResponse for GET /api/entity-types
type EntityTypeListResponse struct {
	EntityTypes []models.EntityType `json:"entityTypes"`
	Total       int                 `json:"total"`
}

// EntityTypeHandler serves the entity class ontology.
type EntityTypeHandler struct {
	store  EntityTypeStore
	logger *zap.Logger
}

// NewEntityTypeHandler creates a new entity type handler.
func NewEntityTypeHandler(store EntityTypeStore, logger *zap.Logger) *EntityTypeHandler {
	return &EntityTypeHandler{store: store, logger: logger}
}

// RegisterRoutes registers the entity type handler's routes on the given mux.
func (h *EntityTypeHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/entity-types"

	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("POST "+base, h.Create)
	mux.HandleFunc("GET "+base+"/{id}", h.Get)
	mux.HandleFunc("PUT "+base+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+base+"/{id}", h.Delete)
	mux.HandleFunc("GET "+base+"/{id}/children", h.Children)
}

// List handles GET /api/entity-types[?inherit=true]
func (h *EntityTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	inherit, ok := ParseBoolQuery(w, r, "inherit", h.logger)
	if !ok {
		return
	}

	types := h.store.EntityTypes()
	if inherit {
		for i, t := range types {
			if resolved, ok := h.store.GetEntityType(t.ID, true); ok {
				types[i] = resolved
			}
		}
	}

	writeData(w, http.StatusOK, EntityTypeListResponse{EntityTypes: types, Total: len(types)}, h.logger)
}

// Create handles POST /api/entity-types
func (h *EntityTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.EntityType
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	created, err := h.store.AddEntityType(r.Context(), req)
	if err != nil {
		h.logger.Info("Entity type not created", zap.String("id", req.ID), zap.Error(err))
		writeDomainError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusCreated, created, h.logger)
}

// Get handles GET /api/entity-types/{id}[?inherit=true]
func (h *EntityTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequiredPathValue(w, r, "id", h.logger)
	if !ok {
		return
	}
	inherit, ok := ParseBoolQuery(w, r, "inherit", h.logger)
	if !ok {
		return
	}

	t, found := h.store.GetEntityType(id, inherit)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "Entity type not found", h.logger)
		return
	}

	writeData(w, http.StatusOK, t, h.logger)
}

// Update handles PUT /api/entity-types/{id}. The id in the body, if given,
// must match the path; ids are immutable.
func (h *EntityTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequiredPathValue(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req models.EntityType
	req.ID = id
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	if req.ID != id {
		writeError(w, http.StatusBadRequest, "id_mismatch", "Entity type id cannot be changed", h.logger)
		return
	}

	updated, err := h.store.UpdateEntityType(r.Context(), req)
	if err != nil {
		h.logger.Info("Entity type not updated", zap.String("id", id), zap.Error(err))
		writeDomainError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, updated, h.logger)
}

// Delete handles DELETE /api/entity-types/{id}
func (h *EntityTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequiredPathValue(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.store.RemoveEntityType(r.Context(), id); err != nil {
		h.logger.Info("Entity type not removed", zap.String("id", id), zap.Error(err))
		writeDomainError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"id": id}, h.logger)
}

// Children handles GET /api/entity-types/{id}/children
func (h *EntityTypeHandler) Children(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequiredPathValue(w, r, "id", h.logger)
	if !ok {
		return
	}
	if _, found := h.store.GetEntityType(id, false); !found {
		writeError(w, http.StatusNotFound, "not_found", "Entity type not found", h.logger)
		return
	}

	children := h.store.ChildTypes(id)
	writeData(w, http.StatusOK, EntityTypeListResponse{EntityTypes: children, Total: len(children)}, h.logger)
}
