// Package anthropic adapts the Anthropic Messages API to the llms.Model
// interface using the official SDK.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
)

var (
	ErrMissingToken           = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
	ErrInvalidContentType     = errors.New("anthropic: invalid content type")
	ErrUnsupportedMessageType = errors.New("anthropic: unsupported message type")
	ErrUnsupportedContentType = errors.New("anthropic: unsupported content type")
)

const DefaultMaxTokens = 4096

type LLM struct {
	Client  *anthropic.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates an Anthropic client. The token falls back to the
// ANTHROPIC_API_KEY environment variable; the model must be set with
// WithModel.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		BaseURL:    "https://api.anthropic.com",
		HttpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.Token == "" {
		return nil, ErrMissingToken
	}
	if options.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(5 * time.Minute),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}
	if options.AnthropicBetaHeader != "" {
		sdkOpts = append(sdkOpts, option.WithHeader("anthropic-beta", options.AnthropicBetaHeader))
	}

	client := anthropic.NewClient(sdkOpts...)
	return &LLM{Client: &client, Options: options}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: o.Options.Model,
	}
	for _, opt := range options {
		opt(&opts)
	}

	params, err := buildParams(messages, &opts)
	if err != nil {
		return nil, err
	}

	if opts.StreamingFunc != nil {
		return o.stream(ctx, params, opts.StreamingFunc)
	}
	return o.generate(ctx, params)
}

// buildParams assembles the Messages API request. The system prompt rides
// outside the conversation, so it is split out of the message list.
func buildParams(messages []llms.Message, opts *llms.CallOptions) (anthropic.MessageNewParams, error) {
	sdkMessages, systemPrompt, err := ProcessMessages(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, errors.Wrap(err, "anthropic: failed to process messages")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		Messages:  sdkMessages,
		MaxTokens: values.NumbersCoalesce(int64(opts.MaxTokens), DefaultMaxTokens),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: systemPrompt}}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = anthropic.Float(opts.TopP)
	}
	if len(opts.StopWords) > 0 {
		params.StopSequences = opts.StopWords
	}
	if sdkTools := ToTools(opts.Tools); len(sdkTools) > 0 {
		params.Tools = sdkTools
	}
	return params, nil
}

func (o *LLM) generate(ctx context.Context, params anthropic.MessageNewParams) (*llms.ContentResponse, error) {
	result, err := o.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}

	usage := func(i int) map[string]any {
		return map[string]any{
			"InputTokens":  result.Usage.InputTokens,
			"OutputTokens": result.Usage.OutputTokens,
			"TotalTokens":  result.Usage.InputTokens + result.Usage.OutputTokens,
			"ID":           result.ID,
			"Index":        i,
		}
	}

	choices := make([]*llms.ContentChoice, 0, len(result.Content))
	for i, block := range result.Content {
		choice := &llms.ContentChoice{
			StopReason:     string(result.StopReason),
			GenerationInfo: usage(i),
		}
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			choice.Content = content.Text
		case anthropic.ToolUseBlock:
			args, err := json.Marshal(content.Input)
			if err != nil {
				return nil, errors.Wrap(err, "anthropic: failed to marshal tool use arguments")
			}
			choice.ToolCalls = []llms.ToolCall{
				{
					ID:   content.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      content.Name,
						Arguments: string(args),
					},
				},
			}
		default:
			return nil, errors.WithMessagef(ErrUnsupportedContentType, "anthropic: %T", content)
		}
		choices = append(choices, choice)
	}

	return &llms.ContentResponse{Choices: choices}, nil
}

// stream consumes the event stream, forwarding text deltas to streamingFunc
// and assembling tool calls from partial JSON deltas.
func (o *LLM) stream(ctx context.Context, params anthropic.MessageNewParams, streamingFunc func(context.Context, []byte) error) (*llms.ContentResponse, error) {
	events := o.Client.Messages.NewStreaming(ctx, params)
	defer events.Close()

	var (
		content     strings.Builder
		toolCalls   []llms.ToolCall
		pendingCall *llms.ToolCall
		stopReason  string
		inTokens    int64
		outTokens   int64
	)

	for events.Next() {
		switch evt := events.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			inTokens = evt.Message.Usage.InputTokens
		case anthropic.ContentBlockStartEvent:
			if block, ok := evt.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				pendingCall = &llms.ToolCall{
					ID:           block.ID,
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: block.Name},
				}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				content.WriteString(delta.Text)
				if streamingFunc != nil {
					if err := streamingFunc(ctx, []byte(delta.Text)); err != nil {
						return nil, errors.Wrap(err, "anthropic: streaming function error")
					}
				}
			case anthropic.InputJSONDelta:
				if pendingCall != nil {
					pendingCall.FunctionCall.Arguments += delta.PartialJSON
				}
			}
		case anthropic.ContentBlockStopEvent:
			if pendingCall != nil {
				toolCalls = append(toolCalls, *pendingCall)
				pendingCall = nil
			}
		case anthropic.MessageDeltaEvent:
			stopReason = string(evt.Delta.StopReason)
			outTokens = evt.Usage.OutputTokens
		}
	}
	if err := events.Err(); err != nil {
		return nil, errors.Wrap(err, "anthropic: streaming error")
	}

	usage := map[string]any{
		"InputTokens":  inTokens,
		"OutputTokens": outTokens,
		"TotalTokens":  inTokens + outTokens,
	}

	var choices []*llms.ContentChoice
	if content.Len() > 0 {
		choices = append(choices, &llms.ContentChoice{
			Content:        content.String(),
			StopReason:     stopReason,
			GenerationInfo: usage,
		})
	}
	if len(toolCalls) > 0 {
		choices = append(choices, &llms.ContentChoice{
			ToolCalls:      toolCalls,
			StopReason:     stopReason,
			GenerationInfo: usage,
		})
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// ToTools converts tool definitions to Anthropic SDK tool parameters.
// The SDK wants a plain map for the input schema, so the ordered property
// map is flattened; the declared required list is carried over as-is.
// Returns nil when no tools are given.
func ToTools(tools []llms.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	sdkTools := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{Type: "object"}
		if params := tool.Function.Parameters; params != nil {
			if params.Properties != nil {
				props := make(map[string]any, params.Properties.Len())
				for pair := params.Properties.Oldest(); pair != nil; pair = pair.Next() {
					props[pair.Key] = pair.Value
				}
				schema.Properties = props
			}
			if len(params.Required) > 0 {
				schema.Required = params.Required
			}
		}

		sdkTools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Function.Name,
				Description: anthropic.String(tool.Function.Description),
				InputSchema: schema,
			},
		}
	}
	return sdkTools
}

// ProcessMessages converts messages to SDK message parameters and extracts
// the system prompt. Consecutive system messages are joined with a newline;
// messages without parts are dropped.
func ProcessMessages(messages []llms.Message) ([]anthropic.MessageParam, string, error) {
	sdkMessages := make([]anthropic.MessageParam, 0, len(messages))
	var system []string

	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}

		var (
			converted anthropic.MessageParam
			err       error
		)
		switch msg.Role {
		case llms.RoleSystem:
			prompt, err := HandleSystemMessage(msg)
			if err != nil {
				return nil, "", errors.Wrap(err, "anthropic: failed to handle system message")
			}
			system = append(system, prompt)
			continue
		case llms.RoleHuman:
			converted, err = HandleHumanMessage(msg)
		case llms.RoleAI:
			converted, err = HandleAIMessage(msg)
		case llms.RoleTool:
			converted, err = HandleToolMessage(msg)
		default:
			return nil, "", errors.WithMessagef(ErrUnsupportedMessageType, "anthropic: %v", msg.Role)
		}
		if err != nil {
			return nil, "", errors.WithMessagef(err, "anthropic: failed to handle %s message", msg.Role)
		}
		sdkMessages = append(sdkMessages, converted)
	}

	return sdkMessages, strings.Join(system, "\n"), nil
}

// HandleSystemMessage extracts the text of a system message.
func HandleSystemMessage(msg llms.Message) (string, error) {
	if text, ok := msg.Parts[0].(llms.TextContent); ok {
		return text.Text, nil
	}
	return "", errors.WithMessagef(ErrInvalidContentType, "anthropic: for system message")
}

// HandleHumanMessage converts a human message to a user message with text
// and image blocks.
func HandleHumanMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		case llms.ImageURLContent:
			blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: p.URL}))
		default:
			return anthropic.MessageParam{}, errors.Errorf("anthropic: unsupported human message part type: %T", part)
		}
	}
	if len(blocks) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in human message")
	}
	return anthropic.NewUserMessage(blocks...), nil
}

// HandleAIMessage converts an assistant message with text and tool-use
// blocks. Tool call arguments must be valid JSON.
func HandleAIMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		case llms.ToolCall:
			var args json.RawMessage
			if err := json.Unmarshal([]byte(p.FunctionCall.Arguments), &args); err != nil {
				return anthropic.MessageParam{}, errors.Wrap(err, "anthropic: failed to unmarshal tool call arguments")
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(p.ID, args, p.FunctionCall.Name))
		default:
			return anthropic.MessageParam{}, errors.Errorf("anthropic: unsupported AI message part type: %T", part)
		}
	}
	if len(blocks) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in AI message")
	}
	return anthropic.NewAssistantMessage(blocks...), nil
}

// HandleToolMessage converts a tool response into a user message holding
// tool result blocks, which is how the Messages API takes tool output back.
func HandleToolMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		resp, ok := part.(llms.ToolCallResponse)
		if !ok {
			return anthropic.MessageParam{}, errors.WithMessagef(ErrInvalidContentType, "anthropic: for tool message part type: %T", part)
		}
		blocks = append(blocks, anthropic.NewToolResultBlock(resp.ToolCallID, resp.Content, false))
	}
	if len(blocks) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in tool message")
	}
	return anthropic.NewUserMessage(blocks...), nil
}
