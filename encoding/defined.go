package encoding

import (
	"fmt"
	"strings"

	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/cockroachdb/errors"
)

// TypedOutputParser decodes model output into T with the encoder selected
// by the mode. Field names come from `json` tags; `jsonschema` descriptions
// help the model fill fields whose name alone is not self-explanatory.
type TypedOutputParser[T any] struct {
	enc      SchemaEncoder
	name     string
	validate bool
}

var _ chatmodel.OutputParser[any] = (*TypedOutputParser[any])(nil)

// NewTypedOutputParser creates a parser for the type of sourceType.
func NewTypedOutputParser[T any](sourceType T, mode Mode) (*TypedOutputParser[T], error) {
	enc, err := PredefinedSchemaEncoder(mode, sourceType)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create encoder")
	}
	return &TypedOutputParser[T]{
		enc:  enc,
		name: fmt.Sprintf("%T parser", sourceType),
	}, nil
}

// WithValidation turns on `validate` struct tag enforcement after decoding.
func (p *TypedOutputParser[T]) WithValidation(validate bool) {
	p.validate = validate
}

// Parse decodes the model output into a new T.
func (p *TypedOutputParser[T]) Parse(text string) (*T, error) {
	var target T
	if err := p.enc.Unmarshal([]byte(text), &target); err != nil {
		return nil, errors.Wrap(err, "failed to decode")
	}
	if v, ok := p.enc.(Validator); ok && p.validate {
		if err := v.Validate(target); err != nil {
			return nil, errors.Wrap(err, "failed to validate")
		}
	}
	return &target, nil
}

// GetFormatInstructions returns the prompt fragment describing the format.
func (p *TypedOutputParser[T]) GetFormatInstructions() string {
	return p.enc.GetFormatInstructions()
}

// Type identifies this parser by the parsed Go type.
func (p *TypedOutputParser[T]) Type() string {
	return p.name
}

// SimpleOutputParser trims the text and returns it as is.
type SimpleOutputParser struct{}

var _ chatmodel.OutputParser[chatmodel.String] = (*SimpleOutputParser)(nil)

func NewSimpleOutputParser() chatmodel.OutputParser[chatmodel.String] {
	return &SimpleOutputParser{}
}

func (p *SimpleOutputParser) GetFormatInstructions() string { return "" }

func (p *SimpleOutputParser) Parse(text string) (*chatmodel.String, error) {
	return chatmodel.NewString(strings.TrimSpace(text)), nil
}

func (p *SimpleOutputParser) Type() string { return "simple_parser" }
