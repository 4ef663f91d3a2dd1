// Package encoding turns model output into typed Go values. An encoder pairs
// a wire format (JSON, YAML, plain text) with the prompt instructions that
// ask the model for that format.
package encoding

import (
	"github.com/cockroachdb/errors"

	dummyenc "github.com/JoviDeCroock/tanstack-ai/encoding/dummy"
	jsonenc "github.com/JoviDeCroock/tanstack-ai/encoding/json"
	yamlenc "github.com/JoviDeCroock/tanstack-ai/encoding/yaml"
)

// SchemaEncoder marshals and unmarshals typed values, and describes the
// expected output format to the model.
type SchemaEncoder interface {
	Marshal(req any) ([]byte, error)
	Unmarshal([]byte, any) error
	// GetFormatInstructions returns the prompt fragment describing the schema.
	GetFormatInstructions() string
}

// Validator checks a decoded value against its struct tags.
type Validator interface {
	Validate(any) error
}

type Mode = string

const (
	ModeJSON             Mode = "json"
	ModeJSONSchema       Mode = "json_schema"
	ModeJSONSchemaStrict Mode = "json_schema_strict" // not all providers; all props must be required
	ModeYAML             Mode = "yaml"
	ModePlainText        Mode = "plain_text"
	ModeCustom           Mode = "custom"
)

// ModeDefault is used when callers do not pick a mode. Overridable by apps.
var ModeDefault = ModeJSONSchema

// PredefinedSchemaEncoder returns the encoder for a built-in mode.
// ModeCustom has no predefined encoder; callers bring their own.
func PredefinedSchemaEncoder(mode Mode, req any) (SchemaEncoder, error) {
	switch mode {
	case ModeJSON, ModeJSONSchema, ModeJSONSchemaStrict:
		return jsonenc.NewEncoder(req)
	case ModeYAML:
		return yamlenc.NewEncoder(req), nil
	case ModePlainText:
		return dummyenc.NewEncoder(), nil
	}
	return nil, errors.New("no predefined encoder")
}

var (
	_ SchemaEncoder = (*dummyenc.Encoder)(nil)
	_ SchemaEncoder = (*jsonenc.Encoder)(nil)
	_ SchemaEncoder = (*yamlenc.Encoder)(nil)
)
