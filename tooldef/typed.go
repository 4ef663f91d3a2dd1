package tooldef

import (
	"context"
	"reflect"

	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llmutils"
	"github.com/JoviDeCroock/tanstack-ai/pkg/schema"
	"github.com/JoviDeCroock/tanstack-ai/tools"
	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// TypedTool is a tool whose arguments are declared by a Go struct instead of
// a property list. The struct is the compile-time argument type; required
// properties come from the reflected JSON schema of I, so `json` and
// `jsonschema` tags drive the schema and `validate` tags are enforced on
// every call.
type TypedTool[I any, O any] struct {
	name        string
	description string
	params      *jsonschema.Schema
	fn          func(context.Context, *I) (*O, error)
	validated   bool
}

var _ tools.Tool[struct{}, struct{}] = (*TypedTool[struct{}, struct{}])(nil)

// NewTyped creates a tool from a Go function with a struct input and output.
func NewTyped[I any, O any](name, description string, fn func(context.Context, *I) (*O, error)) (*TypedTool[I, O], error) {
	if name == "" {
		return nil, errors.New("tool name is required")
	}
	if fn == nil {
		return nil, errors.New("tool function is required")
	}

	var def I
	sc, err := schema.New(reflect.TypeOf(def))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}

	return &TypedTool[I, O]{
		name:        name,
		description: description,
		params:      sc.Parameters,
		fn:          fn,
		validated:   true,
	}, nil
}

// WithValidation controls whether `validate` struct tags are enforced on input.
func (t *TypedTool[I, O]) WithValidation(on bool) *TypedTool[I, O] {
	t.validated = on
	return t
}

func (t *TypedTool[I, O]) Name() string {
	return t.name
}

func (t *TypedTool[I, O]) Description() string {
	return t.description
}

func (t *TypedTool[I, O]) Parameters() *jsonschema.Schema {
	return t.params
}

// Run invokes the tool with a typed input.
func (t *TypedTool[I, O]) Run(ctx context.Context, req *I) (*O, error) {
	if t.validated {
		if err := validate.Struct(req); err != nil {
			return nil, errors.WithMessage(err, "invalid input")
		}
	}
	return t.fn(ctx, req)
}

// Call parses the raw arguments into the input struct and invokes the tool.
func (t *TypedTool[I, O]) Call(ctx context.Context, input string) (string, error) {
	var req I
	if parser, ok := (any)(&req).(chatmodel.InputParser); ok {
		if err := parser.ParseInput(input); err != nil {
			return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
		}
	} else if err := ljson.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}

	if t.validated {
		if err := validate.Struct(&req); err != nil {
			return "", errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, err.Error())
		}
	}

	out, err := t.fn(ctx, &req)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return stringifyResult(out)
}
