package openaiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, provider ProviderType, baseURL string) *Client {
	t.Helper()
	c, err := New(provider, "gpt-test", "sk-test", baseURL, "org-test", "2023-05-15", http.DefaultClient, nil)
	require.NoError(t, err)
	return c
}

func Test_BuildURL(t *testing.T) {
	c := newTestClient(t, ProviderOpenAI, "https://api.openai.com/v1/")
	assert.Equal(t, "https://api.openai.com/v1/chat/completions",
		c.buildURL("/chat/completions", "gpt-test"))

	c = newTestClient(t, ProviderAzure, "https://test.openai.azure.com")
	assert.Equal(t,
		"https://test.openai.azure.com/openai/deployments/gpt-test/chat/completions?api-version=2023-05-15",
		c.buildURL("/chat/completions", "gpt-test"))

	c = newTestClient(t, ProviderOpenAI, "")
	assert.Equal(t, DefaultBaseURL+"/chat/completions", c.buildURL("/chat/completions", ""))
}

func Test_ChatMessage_Marshal(t *testing.T) {
	data, err := json.Marshal(ChatMessage{Role: "user", Content: "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role": "user", "content": "hello"}`, string(data))

	// empty tool content is still emitted
	data, err = json.Marshal(ChatMessage{Role: "tool", ToolCallID: "call_1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role": "tool", "content": "", "tool_call_id": "call_1"}`, string(data))

	// empty non-tool content is omitted
	data, err = json.Marshal(ChatMessage{
		Role: "assistant",
		ToolCalls: []ToolCall{
			{ID: "call_1", Type: ToolTypeFunction, Function: ToolFunction{Name: "echo", Arguments: `{}`}},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"role": "assistant",
		"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "echo", "arguments": "{}"}}]
	}`, string(data))

	data, err = json.Marshal(ChatMessage{
		Role: "user",
		MultiContent: []llms.ContentPart{
			llms.TextPart("what is this?"),
			llms.ImageURLContent{URL: "https://example.com/cat.png", Detail: "low"},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"role": "user",
		"content": [
			{"type": "text", "text": "what is this?"},
			{"type": "image_url", "image_url": {"url": "https://example.com/cat.png", "detail": "low"}}
		]
	}`, string(data))

	_, err = json.Marshal(ChatMessage{
		Role:         "user",
		MultiContent: []llms.ContentPart{llms.ToolCall{ID: "x"}},
	})
	require.Error(t, err)
}

func Test_CreateChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "org-test", r.Header.Get("OpenAI-Organization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req ChatRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: "gpt-test",
			Choices: []*ChatCompletionChoice{
				{
					Message:      ChatMessage{Role: "assistant", Content: "hi there"},
					FinishReason: FinishReasonStop,
				},
			},
			Usage: ChatUsage{PromptTokens: 9, CompletionTokens: 3, TotalTokens: 12},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderOpenAI, srv.URL)
	resp, err := c.CreateChat(context.Background(), &ChatRequest{
		Messages: []*ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hi there", resp.Choices[0].Message.Content)
	assert.Equal(t, FinishReasonStop, resp.Choices[0].FinishReason)
	assert.Equal(t, 9, resp.Usage.PromptTokens)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func Test_CreateChat_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderOpenAI, srv.URL)
	_, err := c.CreateChat(context.Background(), &ChatRequest{
		Messages: []*ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 429")
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func Test_CreateChat_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "choices": []}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderOpenAI, srv.URL)
	_, err := c.CreateChat(context.Background(), &ChatRequest{
		Messages: []*ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

const streamBody = `data: {"id":"chatcmpl-1","model":"gpt-test","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}

data: {"id":"chatcmpl-1","model":"gpt-test","choices":[{"index":0,"delta":{"content":"lo"}}]}

data: {"id":"chatcmpl-1","model":"gpt-test","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"loc"}}]}}]}

data: {"id":"chatcmpl-1","model":"gpt-test","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ation\": \"Berlin\"}"}}]}}]}

data: {"id":"chatcmpl-1","model":"gpt-test","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}

data: {"id":"chatcmpl-1","model":"gpt-test","choices":[],"usage":{"prompt_tokens":11,"completion_tokens":6,"total_tokens":17}}

data: [DONE]

`

func Test_CreateChat_Streaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req ChatRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.True(t, req.Stream)
		require.NotNil(t, req.StreamOptions)
		assert.True(t, req.StreamOptions.IncludeUsage)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(streamBody))
	}))
	defer srv.Close()

	var chunks []string
	c := newTestClient(t, ProviderOpenAI, srv.URL)
	resp, err := c.CreateChat(context.Background(), &ChatRequest{
		Messages: []*ChatMessage{{Role: "user", Content: "hello"}},
		StreamingFunc: func(ctx context.Context, chunk []byte) error {
			chunks = append(chunks, string(chunk))
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo"}, chunks)

	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Equal(t, "Hello", choice.Message.Content)
	assert.Equal(t, FinishReasonToolCalls, choice.FinishReason)
	require.Len(t, choice.Message.ToolCalls, 1)
	tc := choice.Message.ToolCalls[0]
	assert.Equal(t, "call_1", tc.ID)
	assert.Equal(t, ToolTypeFunction, tc.Type)
	assert.Equal(t, "get_weather", tc.Function.Name)
	assert.JSONEq(t, `{"location": "Berlin"}`, tc.Function.Arguments)

	assert.Equal(t, 11, resp.Usage.PromptTokens)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
}
