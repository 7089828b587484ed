// Package export writes image and folder metadata as flat CSV tables: one
// row per item, one column per metadata schema field.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

// ImageMetadataSource returns the annotations of an image.
type ImageMetadataSource interface {
	GetAnnotations(ctx context.Context, imageID string, filter models.AnnotationFilter) ([]models.Annotation, error)
}

// FolderMetadataSource returns the metadata annotation of a folder.
type FolderMetadataSource interface {
	GetFolderMetadata(ctx context.Context, folderID string) (models.Annotation, bool, error)
}

// ImageMetadataCSV writes one row per image. Field columns are the union of
// all image schema fields, in schema order.
func ImageMetadataCSV(ctx context.Context, w io.Writer, model models.DataModel, images []models.Image, source ImageMetadataSource) error {
	fields := fieldColumns(model.ImageSchemas)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"image_id", "image_name", "image_path", "schema"}, fields...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, img := range images {
		annotations, err := source.GetAnnotations(ctx, img.ID, models.FilterMetadata)
		if err != nil {
			return fmt.Errorf("metadata of image %q: %w", img.ID, err)
		}
		body, _ := metadataBody(annotations)

		row := append([]string{img.ID, img.Name, img.Path, body.Source}, fieldValues(body, fields)...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for image %q: %w", img.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FolderMetadataCSV writes one row per folder, with columns from the folder
// schemas.
func FolderMetadataCSV(ctx context.Context, w io.Writer, model models.DataModel, folders []models.Folder, source FolderMetadataSource) error {
	fields := fieldColumns(model.FolderSchemas)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"folder_id", "folder_name", "folder_path", "schema"}, fields...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, f := range folders {
		annotation, found, err := source.GetFolderMetadata(ctx, f.ID)
		if err != nil {
			return fmt.Errorf("metadata of folder %q: %w", f.ID, err)
		}
		var body models.AnnotationBody
		if found {
			body, _ = metadataBody([]models.Annotation{annotation})
		}

		row := append([]string{f.ID, f.Name, f.Path, body.Source}, fieldValues(body, fields)...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for folder %q: %w", f.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// fieldColumns lists property names across schemas, first occurrence wins.
func fieldColumns(schemas []models.MetadataSchema) []string {
	var fields []string
	seen := map[string]bool{}
	for _, s := range schemas {
		for _, p := range s.Properties {
			if !seen[p.Name] {
				seen[p.Name] = true
				fields = append(fields, p.Name)
			}
		}
	}
	return fields
}

// metadataBody returns the first describing body among annotations.
func metadataBody(annotations []models.Annotation) (models.AnnotationBody, bool) {
	for _, a := range annotations {
		for _, b := range a.Body {
			if b.IsMetadata() {
				return b, true
			}
		}
	}
	return models.AnnotationBody{}, false
}

func fieldValues(body models.AnnotationBody, fields []string) []string {
	out := make([]string, len(fields))
	for i, name := range fields {
		out[i] = formatValue(body.Properties[name])
	}
	return out
}

// formatValue renders a metadata value as a single cell. Lists are joined
// with "; " and structured values fall back to JSON.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, "; ")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
