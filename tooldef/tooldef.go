// Package tooldef declares callable tools from a JSON-Schema-like property
// list. A declared tool produces a function parameters object of the shape
// `{type: "object", properties, required}`, where `required` collects exactly
// the properties whose declaration marked them required, in declaration order.
package tooldef

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llmutils"
	"github.com/JoviDeCroock/tanstack-ai/tools"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Handler is the caller-supplied function behind a declared tool.
// The returned value is marshaled to JSON unless it is already a string.
// Errors are propagated to the caller unchanged.
type Handler func(ctx context.Context, args Args) (any, error)

// Definition declares one tool: name, description, parameter properties,
// and the handler to invoke.
type Definition struct {
	Name        string     `validate:"required"`
	Description string     `validate:"required"`
	Properties  []Property `validate:"omitempty,dive"`
	Handler     Handler    `validate:"required"`
}

var validate = validator.New()

// New creates a tool from the definition.
// The definition is validated; an invalid declaration is a programming error
// and is reported at construction, not at call time.
func New(def Definition) (tools.ITool, error) {
	if err := validate.Struct(def); err != nil {
		return nil, errors.WithMessagef(err, "invalid tool definition: %s", def.Name)
	}

	t := &definedTool{
		def:    def,
		params: ParametersSchema(def.Properties),
	}
	for _, p := range def.Properties {
		if p.Required {
			t.required = append(t.required, p.Name)
		}
	}
	return t, nil
}

// MustNew creates a tool from the definition and panics on an invalid declaration.
func MustNew(def Definition) tools.ITool {
	t, err := New(def)
	if err != nil {
		panic(err)
	}
	return t
}

// Define creates a registry from multiple tool definitions at once.
func Define(defs ...Definition) (*tools.Registry, error) {
	list := make([]tools.ITool, 0, len(defs))
	for _, def := range defs {
		t, err := New(def)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return tools.NewRegistry(list...)
}

type definedTool struct {
	def      Definition
	params   *jsonschema.Schema
	required []string
}

var _ tools.ITool = (*definedTool)(nil)

func (t *definedTool) Name() string {
	return t.def.Name
}

func (t *definedTool) Description() string {
	return t.def.Description
}

func (t *definedTool) Parameters() *jsonschema.Schema {
	return t.params
}

// Call parses the arguments object, enforces the declared required
// properties, applies declared defaults, and invokes the handler.
func (t *definedTool) Call(ctx context.Context, input string) (string, error) {
	data := llmutils.CleanJSON([]byte(input))
	if len(data) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}

	var missing []string
	for _, name := range t.required {
		if !gjson.GetBytes(data, escapePath(name)).Exists() {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", errors.WithMessagef(chatmodel.ErrFailedUnmarshalInput,
			"missing required properties: %s", strings.Join(missing, ", "))
	}

	for _, p := range t.def.Properties {
		if p.Required || p.Default == nil {
			continue
		}
		if !gjson.GetBytes(data, escapePath(p.Name)).Exists() {
			patched, err := sjson.SetBytes(data, escapePath(p.Name), p.Default)
			if err != nil {
				return "", errors.WithMessagef(err, "failed to apply default for %s", p.Name)
			}
			data = patched
		}
	}

	out, err := t.def.Handler(ctx, Args{raw: data})
	if err != nil {
		return "", err
	}
	return stringifyResult(out)
}

func stringifyResult(out any) (string, error) {
	switch v := out.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case chatmodel.ContentProvider:
		return v.GetContent(), nil
	default:
		bs, err := json.Marshal(v)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal tool result")
		}
		return string(bs), nil
	}
}

// escapePath makes a literal property name safe to use as a gjson/sjson path.
func escapePath(name string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(name)
}
