package tooldef

import (
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind is the declared value kind of a tool parameter.
type Kind string

const (
	String  Kind = "string"
	Number  Kind = "number"
	Integer Kind = "integer"
	Boolean Kind = "boolean"
	Object  Kind = "object"
	Array   Kind = "array"
)

// Property declares one tool parameter: its value kind, whether it is
// mandatory, and an optional description for the model.
type Property struct {
	// Name is the parameter name as it appears in the arguments object.
	Name string `json:"name" validate:"required"`
	// Type is the declared value kind.
	Type Kind `json:"type" validate:"required,oneof=string number integer boolean object array"`
	// Description tells the model what the parameter means.
	Description string `json:"description,omitempty"`
	// Required marks the parameter as mandatory. The parameter name is
	// listed in the schema `required` array if and only if this is set.
	Required bool `json:"required,omitempty"`
	// Enum restricts the parameter to a fixed set of values.
	Enum []any `json:"enum,omitempty"`
	// Default is applied to the arguments when the caller omits an
	// optional parameter.
	Default any `json:"default,omitempty"`
	// Items describes array elements, for Type == Array.
	Items *Property `json:"items,omitempty"`
	// Properties describes nested object members, for Type == Object.
	Properties []Property `json:"properties,omitempty" validate:"omitempty,dive"`
}

// Schema returns the JSON schema of a single property.
func (p Property) Schema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        string(p.Type),
		Description: p.Description,
		Enum:        p.Enum,
		Default:     p.Default,
	}
	if p.Items != nil {
		s.Items = p.Items.Schema()
	}
	if len(p.Properties) > 0 {
		s.Properties, s.Required = propertiesSchema(p.Properties)
	}
	return s
}

// propertiesSchema converts a declared property list into an ordered
// `properties` map and the `required` name list, both in declaration order.
func propertiesSchema(props []Property) (*orderedmap.OrderedMap[string, *jsonschema.Schema], []string) {
	out := orderedmap.New[string, *jsonschema.Schema]()
	var required []string
	for _, p := range props {
		out.Set(p.Name, p.Schema())
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return out, required
}

// ParametersSchema builds the function parameters object for a declared
// property list: `{type: "object", properties, required}`.
func ParametersSchema(props []Property) *jsonschema.Schema {
	properties, required := propertiesSchema(props)
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}
