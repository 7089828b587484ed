package models

import (
	"encoding/json"
	"fmt"
)

// PropertyType is the discriminator written to the "type" field of a
// property definition document.
type PropertyType string

const (
	PropertyTypeText              PropertyType = "text"
	PropertyTypeNumber            PropertyType = "number"
	PropertyTypeEnum              PropertyType = "enum"
	PropertyTypeURI               PropertyType = "uri"
	PropertyTypeGeoCoordinate     PropertyType = "geocoordinate"
	PropertyTypeMeasurement       PropertyType = "measurement"
	PropertyTypeExternalAuthority PropertyType = "external_authority"
	PropertyTypeRelation          PropertyType = "relation"
)

// PropertyKind is the typed payload of a property definition. The set of
// implementations is closed: only types in this package satisfy it.
type PropertyKind interface {
	Type() PropertyType
	isPropertyKind()
}

// TextProperty holds free text.
type TextProperty struct{}

// NumberProperty holds a numeric value.
type NumberProperty struct{}

// EnumProperty restricts values to a fixed list of options.
type EnumProperty struct {
	Options []string `json:"options,omitempty"`
}

// URIProperty holds a link.
type URIProperty struct{}

// GeoCoordinateProperty holds a lat/long pair.
type GeoCoordinateProperty struct{}

// MeasurementProperty holds a value with one of the allowed units.
type MeasurementProperty struct {
	Units []string `json:"units,omitempty"`
}

// ExternalAuthority describes a lookup service such as Wikidata or GeoNames.
type ExternalAuthority struct {
	Name               string `json:"name"`
	ExternalURLPattern string `json:"external_url_pattern"`
	Type               string `json:"type"` // IFRAME or EXTERNAL_LINK
}

// ExternalAuthorityProperty references a record in an external authority.
type ExternalAuthorityProperty struct {
	Authorities []ExternalAuthority `json:"authorities,omitempty"`
}

// RelationProperty points at an instance of another entity type.
type RelationProperty struct {
	TargetType    string `json:"targetType,omitempty"`
	LabelProperty string `json:"labelProperty,omitempty"`
}

func (TextProperty) Type() PropertyType              { return PropertyTypeText }
func (NumberProperty) Type() PropertyType            { return PropertyTypeNumber }
func (EnumProperty) Type() PropertyType              { return PropertyTypeEnum }
func (URIProperty) Type() PropertyType               { return PropertyTypeURI }
func (GeoCoordinateProperty) Type() PropertyType     { return PropertyTypeGeoCoordinate }
func (MeasurementProperty) Type() PropertyType       { return PropertyTypeMeasurement }
func (ExternalAuthorityProperty) Type() PropertyType { return PropertyTypeExternalAuthority }
func (RelationProperty) Type() PropertyType          { return PropertyTypeRelation }

func (TextProperty) isPropertyKind()              {}
func (NumberProperty) isPropertyKind()            {}
func (EnumProperty) isPropertyKind()              {}
func (URIProperty) isPropertyKind()               {}
func (GeoCoordinateProperty) isPropertyKind()     {}
func (MeasurementProperty) isPropertyKind()       {}
func (ExternalAuthorityProperty) isPropertyKind() {}
func (RelationProperty) isPropertyKind()          {}

// PropertyDefinition is a named, typed field of an entity type or metadata schema.
type PropertyDefinition struct {
	Name        string `validate:"required"`
	Description string
	Required    bool
	Multiple    bool
	Kind        PropertyKind

	// InheritedFrom is set only on resolved copies and names the ancestor
	// entity type that declares the property.
	InheritedFrom string

	// unknownType holds a "type" the decoder did not recognise. Such a
	// property reads as text and is written back with its original type.
	unknownType PropertyType
}

// propertyDefinitionJSON is the flat document shape shared by every kind.
type propertyDefinitionJSON struct {
	Type          PropertyType        `json:"type"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Required      bool                `json:"required,omitempty"`
	Multiple      bool                `json:"multiple,omitempty"`
	InheritedFrom string              `json:"inheritedFrom,omitempty"`
	Options       []string            `json:"options,omitempty"`
	Units         []string            `json:"units,omitempty"`
	Authorities   []ExternalAuthority `json:"authorities,omitempty"`
	TargetType    string              `json:"targetType,omitempty"`
	LabelProperty string              `json:"labelProperty,omitempty"`
}

// Type returns the kind discriminator, defaulting to text when no kind is set.
func (p PropertyDefinition) Type() PropertyType {
	if p.Kind == nil {
		return PropertyTypeText
	}
	return p.Kind.Type()
}

// UnknownType returns the unrecognised type a decoded property was stored
// with, if any.
func (p PropertyDefinition) UnknownType() (PropertyType, bool) {
	return p.unknownType, p.unknownType != ""
}

// MarshalJSON writes the flat {type, name, ...payload} shape.
func (p PropertyDefinition) MarshalJSON() ([]byte, error) {
	doc := propertyDefinitionJSON{
		Type:          p.Type(),
		Name:          p.Name,
		Description:   p.Description,
		Required:      p.Required,
		Multiple:      p.Multiple,
		InheritedFrom: p.InheritedFrom,
	}
	if p.unknownType != "" {
		doc.Type = p.unknownType
	}

	switch k := p.Kind.(type) {
	case EnumProperty:
		doc.Options = k.Options
	case MeasurementProperty:
		doc.Units = k.Units
	case ExternalAuthorityProperty:
		doc.Authorities = k.Authorities
	case RelationProperty:
		doc.TargetType = k.TargetType
		doc.LabelProperty = k.LabelProperty
	}

	return json.Marshal(doc)
}

// UnmarshalJSON reads the flat shape. An unknown type decodes as text and
// is reported by UnknownType.
func (p *PropertyDefinition) UnmarshalJSON(data []byte) error {
	var doc propertyDefinitionJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	kind, known := newPropertyKind(doc)
	*p = PropertyDefinition{
		Name:          doc.Name,
		Description:   doc.Description,
		Required:      doc.Required,
		Multiple:      doc.Multiple,
		InheritedFrom: doc.InheritedFrom,
		Kind:          kind,
	}
	if !known {
		p.unknownType = doc.Type
	}
	return nil
}

func newPropertyKind(doc propertyDefinitionJSON) (PropertyKind, bool) {
	switch doc.Type {
	case PropertyTypeText, "":
		return TextProperty{}, true
	case PropertyTypeNumber:
		return NumberProperty{}, true
	case PropertyTypeEnum:
		return EnumProperty{Options: doc.Options}, true
	case PropertyTypeURI:
		return URIProperty{}, true
	case PropertyTypeGeoCoordinate:
		return GeoCoordinateProperty{}, true
	case PropertyTypeMeasurement:
		return MeasurementProperty{Units: doc.Units}, true
	case PropertyTypeExternalAuthority:
		return ExternalAuthorityProperty{Authorities: doc.Authorities}, true
	case PropertyTypeRelation:
		return RelationProperty{TargetType: doc.TargetType, LabelProperty: doc.LabelProperty}, true
	default:
		return TextProperty{}, false
	}
}

// UnknownPropertyTypes lists the properties in props that were stored with
// an unrecognised type, as "name (type)".
func UnknownPropertyTypes(props []PropertyDefinition) []string {
	var out []string
	for _, p := range props {
		if t, ok := p.UnknownType(); ok {
			out = append(out, fmt.Sprintf("%s (%s)", p.Name, t))
		}
	}
	return out
}

// Clone returns a copy with its own slices.
func (p PropertyDefinition) Clone() PropertyDefinition {
	switch k := p.Kind.(type) {
	case EnumProperty:
		p.Kind = EnumProperty{Options: cloneStrings(k.Options)}
	case MeasurementProperty:
		p.Kind = MeasurementProperty{Units: cloneStrings(k.Units)}
	case ExternalAuthorityProperty:
		var authorities []ExternalAuthority
		if k.Authorities != nil {
			authorities = append([]ExternalAuthority{}, k.Authorities...)
		}
		p.Kind = ExternalAuthorityProperty{Authorities: authorities}
	}
	return p
}

// CloneProperties copies a property list element by element.
func CloneProperties(props []PropertyDefinition) []PropertyDefinition {
	if props == nil {
		return nil
	}
	out := make([]PropertyDefinition, len(props))
	for i, p := range props {
		out[i] = p.Clone()
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
