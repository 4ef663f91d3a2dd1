package llms

import (
	"context"

	"github.com/JoviDeCroock/tanstack-ai/pkg/schema"
	"github.com/invopop/jsonschema"
)

// CallOption configures a single GenerateContent call.
type CallOption func(*CallOptions)

// CallOptions collects per-call settings. Providers ignore the options they
// do not support.
type CallOptions struct {
	// Model overrides the client's default model.
	Model string
	// MaxTokens caps the number of generated tokens.
	MaxTokens int
	// Temperature is the sampling temperature, between 0 and 1.
	Temperature float64
	// StopWords stops generation when any of the words is produced.
	StopWords []string
	// StreamingFunc receives each chunk of a streaming response.
	// Returning an error stops the stream.
	StreamingFunc func(ctx context.Context, chunk []byte) error
	// TopK limits sampling to the k most likely tokens.
	TopK int
	// TopP is the cumulative probability cutoff for nucleus sampling.
	TopP float64
	// Seed requests deterministic sampling.
	Seed int
	// N is the number of choices to generate.
	N int
	// FrequencyPenalty discourages repeated tokens.
	FrequencyPenalty float64
	// PresencePenalty discourages tokens that already appeared.
	PresencePenalty float64

	// Tools the model may invoke during this call.
	Tools []Tool
	// ToolChoice is "none", "auto" (the default), or a specific ToolChoice.
	ToolChoice any

	// Metadata is forwarded to the provider; its meaning is provider-specific.
	Metadata map[string]any

	// ResponseFormat switches the response from plain text to the provider's
	// JSON mode with the given schema.
	ResponseFormat *schema.ResponseFormat
}

// Tool describes a capability offered to the model.
type Tool struct {
	// Type of the tool, e.g. "function".
	Type string `json:"type"`
	// Function holds the definition when Type is "function".
	Function *FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition describes a callable function and its parameter schema.
type FunctionDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Parameters is the JSON schema of the arguments object.
	Parameters *jsonschema.Schema `json:"parameters,omitempty"`
	// Strict enables OpenAI strict structured output for this function.
	Strict bool `json:"strict,omitempty"`
}

// ToolChoice forces the model to call a specific tool.
type ToolChoice struct {
	Type     string             `json:"type"`
	Function *FunctionReference `json:"function,omitempty"`
}

// FunctionReference names a function.
type FunctionReference struct {
	Name string `json:"name"`
}

// WithModel sets the model name for the call.
func WithModel(model string) CallOption {
	return func(o *CallOptions) { o.Model = model }
}

// WithMaxTokens caps the number of generated tokens.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) { o.MaxTokens = maxTokens }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) { o.Temperature = temperature }
}

// WithStopWords sets the stop word list.
func WithStopWords(stopWords []string) CallOption {
	return func(o *CallOptions) { o.StopWords = stopWords }
}

// WithOptions replaces all call options at once.
func WithOptions(options CallOptions) CallOption {
	return func(o *CallOptions) { *o = options }
}

// WithStreamingFunc streams response chunks to the given function.
func WithStreamingFunc(fn func(ctx context.Context, chunk []byte) error) CallOption {
	return func(o *CallOptions) { o.StreamingFunc = fn }
}

// WithTopK enables top-k sampling.
func WithTopK(topK int) CallOption {
	return func(o *CallOptions) { o.TopK = topK }
}

// WithTopP enables nucleus sampling.
func WithTopP(topP float64) CallOption {
	return func(o *CallOptions) { o.TopP = topP }
}

// WithSeed requests deterministic sampling.
func WithSeed(seed int) CallOption {
	return func(o *CallOptions) { o.Seed = seed }
}

// WithN sets the number of choices to generate.
func WithN(n int) CallOption {
	return func(o *CallOptions) { o.N = n }
}

// WithFrequencyPenalty sets the frequency penalty.
func WithFrequencyPenalty(penalty float64) CallOption {
	return func(o *CallOptions) { o.FrequencyPenalty = penalty }
}

// WithPresencePenalty sets the presence penalty.
func WithPresencePenalty(penalty float64) CallOption {
	return func(o *CallOptions) { o.PresencePenalty = penalty }
}

// WithToolChoice sets the tool choice: "none", "auto", or a ToolChoice.
func WithToolChoice(choice any) CallOption {
	return func(o *CallOptions) { o.ToolChoice = choice }
}

// WithTools offers the tools to the model.
func WithTools(tools []Tool) CallOption {
	return func(o *CallOptions) { o.Tools = tools }
}

// WithMetadata attaches provider-specific request metadata.
func WithMetadata(metadata map[string]any) CallOption {
	return func(o *CallOptions) { o.Metadata = metadata }
}

// WithResponseFormat switches the call to structured JSON output.
func WithResponseFormat(responseFormat *schema.ResponseFormat) CallOption {
	return func(o *CallOptions) { o.ResponseFormat = responseFormat }
}
