package handlers

import (
	"bytes"
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/export"
	"github.com/immarkus/immarkus-engine/pkg/models"
)

// ModelSnapshotter hands out deep copies of the data model.
type ModelSnapshotter interface {
	Snapshot() models.DataModel
}

// ExportHandler serves metadata exports.
type ExportHandler struct {
	model       ModelSnapshotter
	catalog     ImageCatalog
	annotations AnnotationStore
	logger      *zap.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(model ModelSnapshotter, catalog ImageCatalog, annotations AnnotationStore, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{model: model, catalog: catalog, annotations: annotations, logger: logger}
}

// RegisterRoutes registers the export handler's routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/export/images.csv", h.ImagesCSV)
	mux.HandleFunc("GET /api/export/folders.csv", h.FoldersCSV)
}

// ImagesCSV handles GET /api/export/images.csv
func (h *ExportHandler) ImagesCSV(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(r.Context(), w, "images.csv", func(ctx context.Context, buf *bytes.Buffer) error {
		return export.ImageMetadataCSV(ctx, buf, h.model.Snapshot(), h.catalog.Images(), h.annotations)
	})
}

// FoldersCSV handles GET /api/export/folders.csv
func (h *ExportHandler) FoldersCSV(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(r.Context(), w, "folders.csv", func(ctx context.Context, buf *bytes.Buffer) error {
		return export.FolderMetadataCSV(ctx, buf, h.model.Snapshot(), h.catalog.Folders(), h.annotations)
	})
}

// writeCSV renders into a buffer first so a failed export still gets a
// proper error status.
func (h *ExportHandler) writeCSV(ctx context.Context, w http.ResponseWriter, filename string, render func(context.Context, *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(ctx, &buf); err != nil {
		h.logger.Error("Export failed", zap.String("file", filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export_failed", "export failed", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("Failed to write export", zap.String("file", filename), zap.Error(err))
	}
}
