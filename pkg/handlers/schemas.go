package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

// SchemaStore is the part of the data model store the metadata schema
// endpoints use.
type SchemaStore interface {
	Schemas(kind models.SchemaKind) ([]models.MetadataSchema, error)
	GetSchema(kind models.SchemaKind, name string) (models.MetadataSchema, bool)
	AddSchema(ctx context.Context, kind models.SchemaKind, schema models.MetadataSchema) (models.MetadataSchema, error)
	UpdateSchema(ctx context.Context, kind models.SchemaKind, schema models.MetadataSchema) (models.MetadataSchema, error)
	RemoveSchema(ctx context.Context, kind models.SchemaKind, name string) error
}

// SchemaListResponse for GET /api/schemas/{kind}
type SchemaListResponse struct {
	Kind    models.SchemaKind       `json:"kind"`
	Schemas []models.MetadataSchema `json:"schemas"`
	Total   int                     `json:"total"`
}

// SchemaHandler serves image and folder metadata schemas.
type SchemaHandler struct {
	store  SchemaStore
	logger *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(store SchemaStore, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{store: store, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/schemas/{kind}"

	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("POST "+base, h.Create)
	mux.HandleFunc("GET "+base+"/{name}", h.Get)
	mux.HandleFunc("PUT "+base+"/{name}", h.Update)
	mux.HandleFunc("DELETE "+base+"/{name}", h.Delete)
}

func (h *SchemaHandler) parseKind(w http.ResponseWriter, r *http.Request) (models.SchemaKind, bool) {
	kind := models.SchemaKind(r.PathValue("kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_schema_kind", "Schema kind must be image or folder", h.logger)
		return "", false
	}
	return kind, true
}

// List handles GET /api/schemas/{kind}
func (h *SchemaHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}

	schemas, err := h.store.Schemas(kind)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, SchemaListResponse{Kind: kind, Schemas: schemas, Total: len(schemas)}, h.logger)
}

// Create handles POST /api/schemas/{kind}
func (h *SchemaHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}

	var req models.MetadataSchema
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	created, err := h.store.AddSchema(r.Context(), kind, req)
	if err != nil {
		h.logger.Info("Schema not created", zap.String("kind", string(kind)), zap.String("name", req.Name), zap.Error(err))
		writeDomainError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusCreated, created, h.logger)
}

// Get handles GET /api/schemas/{kind}/{name}
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	name, ok := ParseRequiredPathValue(w, r, "name", h.logger)
	if !ok {
		return
	}

	schema, found := h.store.GetSchema(kind, name)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "Schema not found", h.logger)
		return
	}

	writeData(w, http.StatusOK, schema, h.logger)
}

// Update handles PUT /api/schemas/{kind}/{name}. Renaming is not supported.
func (h *SchemaHandler) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	name, ok := ParseRequiredPathValue(w, r, "name", h.logger)
	if !ok {
		return
	}

	var req models.MetadataSchema
	req.Name = name
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	if req.Name != name {
		writeError(w, http.StatusBadRequest, "name_mismatch", "Schema name cannot be changed", h.logger)
		return
	}

	updated, err := h.store.UpdateSchema(r.Context(), kind, req)
	if err != nil {
		h.logger.Info("Schema not updated", zap.String("kind", string(kind)), zap.String("name", name), zap.Error(err))
		writeDomainError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, updated, h.logger)
}

// Delete handles DELETE /api/schemas/{kind}/{name}
func (h *SchemaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	name, ok := ParseRequiredPathValue(w, r, "name", h.logger)
	if !ok {
		return
	}

	if err := h.store.RemoveSchema(r.Context(), kind, name); err != nil {
		h.logger.Info("Schema not removed", zap.String("kind", string(kind)), zap.String("name", name), zap.Error(err))
		writeDomainError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"name": name}, h.logger)
}
