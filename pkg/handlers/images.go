package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

// ImageCatalog lists the images and folders of the work folder.
type ImageCatalog interface {
	Images() []models.Image
	Image(id string) (models.Image, bool)
	Folders() []models.Folder
	Folder(id string) (models.Folder, bool)
	FolderContents(folderID string) ([]models.Image, []models.Folder)
}

// AnnotationStore reads and writes image annotations and folder metadata.
type AnnotationStore interface {
	GetAnnotations(ctx context.Context, imageID string, filter models.AnnotationFilter) ([]models.Annotation, error)
	CountAnnotations(ctx context.Context, imageID string, withSelectorOnly bool) (int, error)
	UpsertAnnotation(ctx context.Context, imageID string, annotation models.Annotation) (models.Annotation, error)
	DeleteAnnotation(ctx context.Context, imageID, annotationID string) error
	GetFolderMetadata(ctx context.Context, folderID string) (models.Annotation, bool, error)
	UpsertFolderMetadata(ctx context.Context, folderID string, annotation models.Annotation) (models.Annotation, error)
}

// ImageListResponse for GET /api/images
type ImageListResponse struct {
	Images []models.Image `json:"images"`
	Total  int            `json:"total"`
}

// FolderContentsResponse for GET /api/folders/{id}
type FolderContentsResponse struct {
	Folder  *models.Folder  `json:"folder,omitempty"`
	Images  []models.Image  `json:"images"`
	Folders []models.Folder `json:"folders"`
}

// AnnotationListResponse for GET /api/images/{id}/annotations
type AnnotationListResponse struct {
	ImageID     string              `json:"imageId"`
	Annotations []models.Annotation `json:"annotations"`
	Total       int                 `json:"total"`
}

// ImageHandler serves the image catalog and per-image annotations.
type ImageHandler struct {
	catalog     ImageCatalog
	annotations AnnotationStore
	logger      *zap.Logger
}

// NewImageHandler creates a new image handler.
func NewImageHandler(catalog ImageCatalog, annotations AnnotationStore, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{catalog: catalog, annotations: annotations, logger: logger}
}

// RegisterRoutes registers the image handler's routes on the given mux.
func (h *ImageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/images", h.List)
	mux.HandleFunc("GET /api/images/{id}", h.Get)
	mux.HandleFunc("GET /api/images/{id}/annotations", h.ListAnnotations)
	mux.HandleFunc("GET /api/images/{id}/annotations/count", h.CountAnnotations)
	mux.HandleFunc("POST /api/images/{id}/annotations", h.UpsertAnnotation)
	mux.HandleFunc("PUT /api/images/{id}/annotations/{aid}", h.UpsertAnnotation)
	mux.HandleFunc("DELETE /api/images/{id}/annotations/{aid}", h.DeleteAnnotation)

	mux.HandleFunc("GET /api/folders", h.RootFolder)
	mux.HandleFunc("GET /api/folders/{id}", h.FolderContents)
	mux.HandleFunc("GET /api/folders/{id}/metadata", h.GetFolderMetadata)
	mux.HandleFunc("PUT /api/folders/{id}/metadata", h.PutFolderMetadata)
}

// List handles GET /api/images
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	images := h.catalog.Images()
	writeData(w, http.StatusOK, ImageListResponse{Images: images, Total: len(images)}, h.logger)
}

// Get handles GET /api/images/{id}
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImageID(w, r, h.logger)
	if !ok {
		return
	}
	img, found := h.catalog.Image(id)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "Image not found", h.logger)
		return
	}
	writeData(w, http.StatusOK, img, h.logger)
}

// ListAnnotations handles GET /api/images/{id}/annotations[?type=image|metadata|both]
func (h *ImageHandler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImageID(w, r, h.logger)
	if !ok {
		return
	}

	filter := models.AnnotationFilter(r.URL.Query().Get("type"))
	switch filter {
	case "":
		filter = models.FilterBoth
	case models.FilterImage, models.FilterMetadata, models.FilterBoth:
	default:
		writeError(w, http.StatusBadRequest, "invalid_type", "type must be image, metadata or both", h.logger)
		return
	}

	annotations, err := h.annotations.GetAnnotations(r.Context(), id, filter)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, AnnotationListResponse{ImageID: id, Annotations: annotations, Total: len(annotations)}, h.logger)
}

// CountAnnotations handles GET /api/images/{id}/annotations/count[?selector=false]
func (h *ImageHandler) CountAnnotations(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImageID(w, r, h.logger)
	if !ok {
		return
	}
	withSelectorOnly := true
	if r.URL.Query().Has("selector") {
		if withSelectorOnly, ok = ParseBoolQuery(w, r, "selector", h.logger); !ok {
			return
		}
	}

	n, err := h.annotations.CountAnnotations(r.Context(), id, withSelectorOnly)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"count": n}, h.logger)
}

// UpsertAnnotation handles POST /api/images/{id}/annotations and
// PUT /api/images/{id}/annotations/{aid}
func (h *ImageHandler) UpsertAnnotation(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImageID(w, r, h.logger)
	if !ok {
		return
	}

	var req models.Annotation
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	if aid := r.PathValue("aid"); aid != "" {
		if req.ID != "" && req.ID != aid {
			writeError(w, http.StatusBadRequest, "id_mismatch", "Annotation id does not match path", h.logger)
			return
		}
		req.ID = aid
	}

	saved, err := h.annotations.UpsertAnnotation(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, saved, h.logger)
}

// DeleteAnnotation handles DELETE /api/images/{id}/annotations/{aid}
func (h *ImageHandler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImageID(w, r, h.logger)
	if !ok {
		return
	}
	aid, ok := ParseRequiredPathValue(w, r, "aid", h.logger)
	if !ok {
		return
	}

	if err := h.annotations.DeleteAnnotation(r.Context(), id, aid); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": aid}, h.logger)
}

// RootFolder handles GET /api/folders
func (h *ImageHandler) RootFolder(w http.ResponseWriter, r *http.Request) {
	images, folders := h.catalog.FolderContents("")
	writeData(w, http.StatusOK, FolderContentsResponse{Images: images, Folders: folders}, h.logger)
}

// FolderContents handles GET /api/folders/{id}
func (h *ImageHandler) FolderContents(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequiredPathValue(w, r, "id", h.logger)
	if !ok {
		return
	}
	folder, found := h.catalog.Folder(id)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "Folder not found", h.logger)
		return
	}

	images, folders := h.catalog.FolderContents(id)
	writeData(w, http.StatusOK, FolderContentsResponse{Folder: &folder, Images: images, Folders: folders}, h.logger)
}

// GetFolderMetadata handles GET /api/folders/{id}/metadata
func (h *ImageHandler) GetFolderMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequiredPathValue(w, r, "id", h.logger)
	if !ok {
		return
	}

	annotation, found, err := h.annotations.GetFolderMetadata(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "Folder has no metadata", h.logger)
		return
	}
	writeData(w, http.StatusOK, annotation, h.logger)
}

// PutFolderMetadata handles PUT /api/folders/{id}/metadata
func (h *ImageHandler) PutFolderMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequiredPathValue(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req models.Annotation
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	saved, err := h.annotations.UpsertFolderMetadata(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, saved, h.logger)
}
