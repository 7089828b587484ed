package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validatePropertyType, models.PropertyDefinition{})
	return v
}

// validatePropertyType rejects property types the models package does not
// know. They decode as text so stored documents still load.
func validatePropertyType(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.PropertyDefinition)
	if t, ok := p.UnknownType(); ok {
		sl.ReportError(string(t), "Type", "Type", "property_type", string(t))
	}
}

// maxBodyBytes bounds request bodies; data model documents are small.
const maxBodyBytes = 4 << 20

// decodeAndValidate decodes the JSON body into v and runs struct validation.
// On failure it writes a 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any, logger *zap.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error(), logger)
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", validationMessage(err), logger)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
