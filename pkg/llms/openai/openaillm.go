// Package openai adapts OpenAI-compatible chat APIs to the llms.Model
// interface.
package openai

import (
	"context"
	"fmt"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llms/openai/internal/openaiclient"
	"github.com/cockroachdb/errors"
	"github.com/openai/openai-go/v3/responses"
)

type ChatMessage = openaiclient.ChatMessage

// ErrEmptyResponse is returned when the API returns no choices.
var ErrEmptyResponse = openaiclient.ErrEmptyResponse

const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleTool      = "tool"
)

type LLM struct {
	client *openaiclient.Client
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	_, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{client: c}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.client.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs := make([]*ChatMessage, 0, len(messages))
	for _, mc := range messages {
		msg, err := convertMessage(mc)
		if err != nil {
			return nil, err
		}
		chatMsgs = append(chatMsgs, msg)
	}

	req := &openaiclient.ChatRequest{
		Model:            opts.Model,
		StopWords:        opts.StopWords,
		Messages:         chatMsgs,
		StreamingFunc:    opts.StreamingFunc,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		N:                opts.N,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,

		MaxCompletionTokens: opts.MaxTokens,

		ToolChoice:     opts.ToolChoice,
		Seed:           opts.Seed,
		Metadata:       opts.Metadata,
		ResponseFormat: opts.ResponseFormat,
	}
	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, err
		}
		req.Tools = append(req.Tools, t)
	}
	if o.client.ResponseFormat != nil {
		req.ResponseFormat = o.client.ResponseFormat
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: fmt.Sprint(c.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":     result.Usage.PromptTokens,
				"OutputTokens":    result.Usage.CompletionTokens,
				"TotalTokens":     result.Usage.TotalTokens,
				"ReasoningTokens": result.Usage.CompletionTokensDetails.ReasoningTokens,
				"ID":              result.ID,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		choices[i] = choice
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// convertMessage maps a message onto the chat completions wire format.
// Tool responses collapse into Content plus ToolCallID; tool calls made by
// the assistant move from the parts into the tool_calls field.
func convertMessage(mc llms.Message) (*ChatMessage, error) {
	msg := &ChatMessage{MultiContent: mc.Parts}
	switch mc.Role {
	case llms.RoleSystem:
		msg.Role = RoleSystem
	case llms.RoleAI:
		msg.Role = RoleAssistant
	case llms.RoleHuman:
		msg.Role = RoleUser
	case llms.RoleTool:
		msg.Role = RoleTool
		if len(mc.Parts) != 1 {
			return nil, errors.Errorf("expected exactly one part for role %v, got %v", mc.Role, len(mc.Parts))
		}
		resp, ok := mc.Parts[0].(llms.ToolCallResponse)
		if !ok {
			return nil, errors.Errorf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, mc.Parts[0])
		}
		msg.ToolCallID = resp.ToolCallID
		msg.Name = resp.Name
		msg.Content = resp.Content
		msg.MultiContent = nil
		return msg, nil
	default:
		return nil, errors.Errorf("role %v not supported", mc.Role)
	}

	parts, toolCalls := ExtractToolParts(msg)
	msg.MultiContent = parts
	if len(toolCalls) > 0 {
		msg.ToolCalls = make([]openaiclient.ToolCall, len(toolCalls))
		for i, tc := range toolCalls {
			msg.ToolCalls[i] = openaiclient.ToolCall{
				ID:   tc.ID,
				Type: openaiclient.ToolType(tc.Type),
				Function: openaiclient.ToolFunction{
					Name:      tc.FunctionCall.Name,
					Arguments: tc.FunctionCall.Arguments,
				},
			}
		}
	}
	return msg, nil
}

// CreateResponse calls the Responses API directly, for callers that need
// features not exposed through GenerateContent.
func (o *LLM) CreateResponse(ctx context.Context, r *responses.ResponseNewParams) (*responses.Response, error) {
	return o.client.CreateResponse(ctx, r)
}

// ExtractToolParts splits a message into its content parts and the tool
// calls embedded among them.
func ExtractToolParts(msg *ChatMessage) ([]llms.ContentPart, []llms.ToolCall) {
	var content []llms.ContentPart
	var toolCalls []llms.ToolCall
	for _, part := range msg.MultiContent {
		switch p := part.(type) {
		case llms.ToolCall:
			toolCalls = append(toolCalls, p)
		default:
			content = append(content, p)
		}
	}
	return content, toolCalls
}

func toolFromTool(t llms.Tool) (openaiclient.Tool, error) {
	if t.Type != string(openaiclient.ToolTypeFunction) {
		return openaiclient.Tool{}, errors.Errorf("tool type %v not supported", t.Type)
	}
	return openaiclient.Tool{
		Type: openaiclient.ToolTypeFunction,
		Function: openaiclient.FunctionDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
			Strict:      t.Function.Strict,
		},
	}, nil
}
