// Package yaml decodes model output as YAML, with an example-driven prompt
// format.
package yaml

import (
	"reflect"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llmutils"
	"github.com/JoviDeCroock/tanstack-ai/pkg/schema"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Encoder struct {
	reqType reflect.Type
}

func NewEncoder(req any) *Encoder {
	return &Encoder{reqType: reflect.TypeOf(req)}
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	return yaml.Unmarshal(llmutils.BytesTrimBackticks(bs), ret)
}

func (e *Encoder) Validate(req any) error {
	return validate.Struct(req)
}

// GetFormatInstructions renders a fake instance of the type as a YAML
// example. Types can control the example by implementing schema.Faker.
func (e *Encoder) GetFormatInstructions() string {
	ptr := reflect.New(e.reqType)
	instance := ptr.Interface()
	if f, ok := ptr.Elem().Interface().(schema.Faker); ok {
		instance = f.Fake()
	} else {
		_ = gofakeit.Struct(instance)
	}

	example, err := e.Marshal(instance)
	if err != nil {
		return ""
	}
	return "\nRespond with YAML in the following YAML schema without comments:\n" +
		"```yaml\n" + string(example) + "```" +
		"\nMake sure to return an instance of the YAML, not the schema itself.\n"
}
