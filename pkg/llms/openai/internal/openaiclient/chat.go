package openaiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/JoviDeCroock/tanstack-ai/pkg/schema"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

var logger = xlog.NewPackageLogger("github.com/JoviDeCroock/tanstack-ai", "openai")

// ChatRequest is a request to complete a chat completion.
type ChatRequest struct {
	Model    string         `json:"model"`
	Messages []*ChatMessage `json:"messages"`

	Temperature         float64  `json:"temperature,omitempty"`
	TopP                float64  `json:"top_p,omitempty"`
	MaxCompletionTokens int      `json:"max_completion_tokens,omitempty"`
	N                   int      `json:"n,omitempty"`
	StopWords           []string `json:"stop,omitempty"`
	FrequencyPenalty    float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty     float64  `json:"presence_penalty,omitempty"`
	Seed                int      `json:"seed,omitempty"`

	Tools      []Tool `json:"tools,omitempty"`
	ToolChoice any    `json:"tool_choice,omitempty"`

	ResponseFormat *schema.ResponseFormat `json:"response_format,omitempty"`
	Metadata       map[string]any         `json:"metadata,omitempty"`

	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`

	// StreamingFunc is a function to be called for each chunk of a streaming response.
	StreamingFunc func(ctx context.Context, chunk []byte) error `json:"-"`
}

// StreamOptions for streaming requests.
type StreamOptions struct {
	// IncludeUsage requests token usage stats on the final chunk.
	IncludeUsage bool `json:"include_usage"`
}

// ChatMessage is a message in a chat completion request.
type ChatMessage struct {
	// Role is one of "system", "assistant", "user", "tool".
	Role string
	// Content is the plain text content of the message.
	Content string
	// MultiContent carries multi-part content, it takes precedence over Content.
	MultiContent []llms.ContentPart

	// Name of the tool or function the content belongs to.
	Name string

	// ToolCalls is a list of tools the model asks to invoke.
	ToolCalls []ToolCall

	// ToolCallID is the ID of the tool call this message is responding to.
	ToolCallID string
}

type chatMessagePart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatMessageJSON struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// MarshalJSON renders multi-part content as the typed parts array the API
// expects, and plain content as a string.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	msg := chatMessageJSON{
		Role:       m.Role,
		Name:       m.Name,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
	}

	if len(m.MultiContent) > 0 {
		parts := make([]chatMessagePart, 0, len(m.MultiContent))
		for _, part := range m.MultiContent {
			switch p := part.(type) {
			case llms.TextContent:
				parts = append(parts, chatMessagePart{Type: "text", Text: p.Text})
			case llms.ImageURLContent:
				parts = append(parts, chatMessagePart{
					Type:     "image_url",
					ImageURL: &chatImageURL{URL: p.URL, Detail: p.Detail},
				})
			default:
				return nil, errors.Errorf("unsupported content part type: %T", part)
			}
		}
		msg.Content = parts
	} else if m.Content != "" || m.Role == "tool" {
		msg.Content = m.Content
	}

	return json.Marshal(msg)
}

func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var msg struct {
		Role       string     `json:"role"`
		Content    string     `json:"content"`
		Name       string     `json:"name"`
		ToolCalls  []ToolCall `json:"tool_calls"`
		ToolCallID string     `json:"tool_call_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	m.Role = msg.Role
	m.Content = msg.Content
	m.Name = msg.Name
	m.ToolCalls = msg.ToolCalls
	m.ToolCallID = msg.ToolCallID
	return nil
}

// Tool is a tool the model may invoke.
type Tool struct {
	Type     ToolType           `json:"type"`
	Function FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition is a definition of a function that can be called by the model.
type FunctionDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
	Strict      bool               `json:"strict,omitempty"`
}

// ToolCall is a tool call requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     ToolType     `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the name and arguments of a called function.
type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FinishReason is the reason the model stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// ChatCompletionChoice is a choice in a chat response.
type ChatCompletionChoice struct {
	Index        int          `json:"index"`
	Message      ChatMessage  `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// ChatUsage is token accounting for a chat response.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	CompletionTokensDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

// ChatCompletionResponse is a response to a chat request.
type ChatCompletionResponse struct {
	ID      string                  `json:"id"`
	Created int64                   `json:"created"`
	Model   string                  `json:"model"`
	Choices []*ChatCompletionChoice `json:"choices"`
	Usage   ChatUsage               `json:"usage"`
}

// CreateChat creates chat request.
func (c *Client) CreateChat(ctx context.Context, r *ChatRequest) (*ChatCompletionResponse, error) {
	if r.Model == "" {
		if c.Model == "" {
			r.Model = DefaultChatModel
		} else {
			r.Model = c.Model
		}
	}
	resp, err := c.createChat(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

func (c *Client) createChat(ctx context.Context, payload *ChatRequest) (*ChatCompletionResponse, error) {
	if payload.StreamingFunc != nil {
		payload.Stream = true
		payload.StreamOptions = &StreamOptions{IncludeUsage: true}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	u := c.buildURL("/chat/completions", payload.Model)
	logger.ContextKV(ctx, xlog.DEBUG, "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	c.setHeaders(req)

	r, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = r.Body.Close() }()

	if r.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API returned unexpected status code: %d", r.StatusCode)
		if r.StatusCode == http.StatusNotFound {
			msg += ": url: " + u
		}
		var errResp errorMessage
		if err := json.NewDecoder(r.Body).Decode(&errResp); err != nil {
			return nil, errors.New(msg)
		}
		return nil, errors.Errorf("%s: %s", msg, errResp.Error.Message)
	}

	if payload.Stream {
		return parseStreamingChatResponse(ctx, r, payload)
	}

	var response ChatCompletionResponse
	if err := json.NewDecoder(r.Body).Decode(&response); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &response, nil
}

type streamedChatResponsePayload struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role      string     `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []struct {
				Index    int      `json:"index"`
				ID       string   `json:"id"`
				Type     ToolType `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason FinishReason `json:"finish_reason"`
	} `json:"choices"`
	Usage *ChatUsage `json:"usage"`
}

func parseStreamingChatResponse(ctx context.Context, r *http.Response, payload *ChatRequest) (*ChatCompletionResponse, error) {
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	response := &ChatCompletionResponse{
		Choices: []*ChatCompletionChoice{{}},
	}
	choice := response.Choices[0]
	var contentBuilder strings.Builder
	// tool call deltas are keyed by index and merged as the arguments stream in
	toolCallsByIndex := make(map[int]*ToolCall)
	maxToolIndex := -1

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk streamedChatResponsePayload
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, errors.Wrap(err, "decode stream chunk")
		}

		response.ID = chunk.ID
		response.Model = chunk.Model
		response.Created = chunk.Created
		if chunk.Usage != nil {
			response.Usage = *chunk.Usage
		}

		for _, c := range chunk.Choices {
			if c.Delta.Role != "" {
				choice.Message.Role = c.Delta.Role
			}
			if c.Delta.Content != "" {
				contentBuilder.WriteString(c.Delta.Content)
				if payload.StreamingFunc != nil {
					if err := payload.StreamingFunc(ctx, []byte(c.Delta.Content)); err != nil {
						return nil, errors.Wrap(err, "streaming func returned an error")
					}
				}
			}
			for _, tc := range c.Delta.ToolCalls {
				cur := toolCallsByIndex[tc.Index]
				if cur == nil {
					cur = &ToolCall{}
					toolCallsByIndex[tc.Index] = cur
					if tc.Index > maxToolIndex {
						maxToolIndex = tc.Index
					}
				}
				if tc.ID != "" {
					cur.ID = tc.ID
				}
				if tc.Type != "" {
					cur.Type = tc.Type
				}
				if tc.Function.Name != "" {
					cur.Function.Name = tc.Function.Name
				}
				cur.Function.Arguments += tc.Function.Arguments
			}
			if c.FinishReason != "" {
				choice.FinishReason = c.FinishReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read stream")
	}

	choice.Message.Content = contentBuilder.String()
	for i := 0; i <= maxToolIndex; i++ {
		if tc := toolCallsByIndex[i]; tc != nil {
			choice.Message.ToolCalls = append(choice.Message.ToolCalls, *tc)
		}
	}

	return response, nil
}
