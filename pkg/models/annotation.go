package models

import (
	"bytes"
	"encoding/json"
)

// Body purposes used by the annotation tool.
const (
	PurposeClassifying = "classifying" // tags an annotation with an entity class
	PurposeDescribing  = "describing"  // carries metadata for a schema
)

// Annotation is a W3C web annotation as stored per image. Annotations with a
// selector mark an image region; the rest hold image-level metadata.
type Annotation struct {
	ID     string           `json:"id"`
	Type   string           `json:"type,omitempty"`
	Target AnnotationTarget `json:"target"`
	Body   AnnotationBodies `json:"body"`
}

// AnnotationTarget points at the annotated image, optionally narrowed by a selector.
type AnnotationTarget struct {
	Source   string          `json:"source,omitempty"`
	Selector json.RawMessage `json:"selector,omitempty"`
}

// AnnotationBody is one body of an annotation. When Purpose is not
// "describing", Source names the entity class the annotation is tagged with.
type AnnotationBody struct {
	Type       string         `json:"type,omitempty"`
	Purpose    string         `json:"purpose,omitempty"`
	Source     string         `json:"source,omitempty"`
	Value      string         `json:"value,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// AnnotationBodies accepts either a single body object or an array of bodies
// and always encodes as an array.
type AnnotationBodies []AnnotationBody

// UnmarshalJSON handles the one-or-many body shape.
func (b *AnnotationBodies) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*b = nil
		return nil
	}

	if trimmed[0] == '[' {
		var many []AnnotationBody
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*b = many
		return nil
	}

	var one AnnotationBody
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*b = AnnotationBodies{one}
	return nil
}

// MarshalJSON always writes an array, never null.
func (b AnnotationBodies) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]AnnotationBody(b))
}

// HasSelector reports whether the annotation targets an image region.
func (a Annotation) HasSelector() bool {
	sel := bytes.TrimSpace(a.Target.Selector)
	return len(sel) > 0 && !bytes.Equal(sel, []byte("null"))
}

// IsTag reports whether the body tags the annotation with an entity class.
func (b AnnotationBody) IsTag() bool {
	return b.Source != "" && b.Purpose != PurposeDescribing
}

// IsMetadata reports whether the body carries schema metadata.
func (b AnnotationBody) IsMetadata() bool {
	return b.Purpose == PurposeDescribing
}

// Tags returns the entity class ids this annotation is tagged with, in body
// order. Duplicates are kept.
func (a Annotation) Tags() []string {
	var tags []string
	for _, body := range a.Body {
		if body.IsTag() {
			tags = append(tags, body.Source)
		}
	}
	return tags
}

// Clone returns a deep copy. Property maps are copied one level deep.
func (a Annotation) Clone() Annotation {
	if a.Target.Selector != nil {
		a.Target.Selector = append(json.RawMessage{}, a.Target.Selector...)
	}
	if a.Body != nil {
		bodies := make(AnnotationBodies, len(a.Body))
		for i, body := range a.Body {
			if body.Properties != nil {
				props := make(map[string]any, len(body.Properties))
				for k, v := range body.Properties {
					props[k] = v
				}
				body.Properties = props
			}
			bodies[i] = body
		}
		a.Body = bodies
	}
	return a
}

// AnnotationFilter selects annotations by whether they carry a selector.
type AnnotationFilter string

const (
	FilterImage    AnnotationFilter = "image"    // region annotations only
	FilterMetadata AnnotationFilter = "metadata" // annotations without selector
	FilterBoth     AnnotationFilter = "both"
)

// Match reports whether a passes the filter. Unknown filters match everything.
func (f AnnotationFilter) Match(a Annotation) bool {
	switch f {
	case FilterImage:
		return a.HasSelector()
	case FilterMetadata:
		return !a.HasSelector()
	default:
		return true
	}
}
