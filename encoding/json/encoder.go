// Package json decodes model output into typed values, tolerating the ways
// models mangle JSON.
package json

import (
	"encoding/json"
	"reflect"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llmutils"
	"github.com/JoviDeCroock/tanstack-ai/pkg/schema"
	"github.com/bububa/ljson"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Encoder struct {
	schema *schema.Schema
}

func NewEncoder(req any) (*Encoder, error) {
	sc, err := schema.New(reflect.TypeOf(req))
	if err != nil {
		return nil, err
	}
	return &Encoder{schema: sc}, nil
}

func (e *Encoder) Schema() *schema.Schema {
	return e.schema
}

func (e *Encoder) Marshal(req any) ([]byte, error) {
	return json.Marshal(req)
}

// Unmarshal is lenient about model output: prose around the JSON is trimmed
// and truncated JSON is repaired where possible.
func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	return ljson.Unmarshal(llmutils.CleanJSON(bs), ret)
}

func (e *Encoder) Validate(req any) error {
	return validate.Struct(req)
}

func (e *Encoder) GetFormatInstructions() string {
	return "\nRespond with JSON in the following JSON schema:\n" +
		"```json\n" + e.schema.String() + "\n```" +
		"\nMake sure to return an instance of the JSON, not the schema itself.\n" +
		"Use the exact field names as they are defined in the schema.\n"
}
