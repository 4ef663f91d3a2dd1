package tools

import (
	"context"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llmutils"
	"github.com/invopop/jsonschema"
)

// ITool is a named callable exposed to a language model.
type ITool interface {
	// Name identifies the tool to the model.
	Name() string
	// Description tells the model when to use the tool. Keep it within the
	// model's prompt budget.
	Description() string
	// Parameters is the arguments object schema, with `properties` and
	// `required`.
	Parameters() *jsonschema.Schema

	// Call runs the tool on the raw arguments string. Input that does not
	// match the schema should surface as ErrFailedUnmarshalInput.
	Call(context.Context, string) (string, error)
}

// Callback receives tool lifecycle events.
type Callback interface {
	OnToolStart(ctx context.Context, tool ITool, input string)
	OnToolEnd(ctx context.Context, tool ITool, input string, output string)
	OnToolError(ctx context.Context, tool ITool, input string, err error)
	OnToolNotFound(ctx context.Context, name string)
}

// Tool is a typed tool with a concrete input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

type toolDescription struct {
	Name        string `json:"Name" yaml:"Name"`
	Description string `json:"Description" yaml:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// GetDescriptions returns a JSON block describing the given tools,
// suitable for inclusion in a prompt.
func GetDescriptions(list ...ITool) string {
	var d toolsDescription
	for _, tool := range list {
		d.Tools = append(d.Tools, toolDescription{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	return llmutils.BackticksJSON(llmutils.ToJSONIndent(d))
}
