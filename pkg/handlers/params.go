package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseImageID extracts and validates the image ID from the request path.
// Image ids are name-based UUIDs, so anything else cannot name an image.
// Expects path parameter: id
func ParseImageID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	id, ok := parseUUID(w, r, "id", "invalid_image_id", "Invalid image ID format", logger)
	if !ok {
		return "", false
	}
	return id.String(), true
}

// ParseRequiredPathValue returns a non-blank path parameter, writing a 400
// response when it is missing.
func ParseRequiredPathValue(w http.ResponseWriter, r *http.Request, pathParam string, logger *zap.Logger) (string, bool) {
	value := strings.TrimSpace(r.PathValue(pathParam))
	if value == "" {
		writeError(w, http.StatusBadRequest, "missing_"+pathParam, "Missing path parameter: "+pathParam, logger)
		return "", false
	}
	return value, true
}

// ParseBoolQuery reads an optional boolean query parameter. Absent means
// false; anything strconv.ParseBool rejects is a 400.
func ParseBoolQuery(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, "Invalid boolean for "+name, logger)
		return false, false
	}
	return v, true
}

// ParseIntQuery reads an optional integer query parameter, returning def
// when it is absent.
func ParseIntQuery(w http.ResponseWriter, r *http.Request, name string, def int, logger *zap.Logger) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, "Invalid integer for "+name, logger)
		return 0, false
	}
	return v, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode, errorMessage, logger)
		return uuid.Nil, false
	}
	return id, true
}
