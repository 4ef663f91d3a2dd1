package tools_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/JoviDeCroock/tanstack-ai/tools"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name        string
	description string
	fn          func(ctx context.Context, input string) (string, error)
	calls       atomic.Int32
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return t.description }

func (t *stubTool) Parameters() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func (t *stubTool) Call(ctx context.Context, input string) (string, error) {
	t.calls.Add(1)
	if t.fn != nil {
		return t.fn(ctx, input)
	}
	return "ok: " + input, nil
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func Test_Registry(t *testing.T) {
	first := &stubTool{name: "first", description: "first tool"}
	second := &stubTool{name: "second", description: "second tool"}

	reg, err := tools.NewRegistry(first, second)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"first", "second"}, reg.Names())
	require.Len(t, reg.Tools(), 2)

	llmTools := reg.LLMTools()
	require.Len(t, llmTools, 2)
	assert.Equal(t, "function", llmTools[0].Type)
	assert.Equal(t, "first", llmTools[0].Function.Name)
	assert.Equal(t, "first tool", llmTools[0].Function.Description)
	assert.NotNil(t, llmTools[0].Function.Parameters)

	got, ok := reg.Get("first")
	require.True(t, ok)
	assert.Equal(t, first, got)

	// lookup is case-insensitive
	got, ok = reg.Get("FIRST")
	require.True(t, ok)
	assert.Equal(t, first, got)

	_, ok = reg.Get("unknown")
	assert.False(t, ok)

	// duplicates are rejected case-insensitively
	err = reg.Register(&stubTool{name: "First"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool already registered")

	err = reg.Register(&stubTool{name: ""})
	assert.EqualError(t, err, "tool name is required")

	_, err = tools.NewRegistry(first, &stubTool{name: "first"})
	require.Error(t, err)
}

func Test_Dispatch(t *testing.T) {
	weather := &stubTool{
		name:        "get_weather",
		description: "Get the weather.",
		fn: func(ctx context.Context, input string) (string, error) {
			return `{"temperature": 21}`, nil
		},
	}
	echo := &stubTool{name: "echo", description: "Echo the input."}

	reg, err := tools.NewRegistry(weather, echo)
	require.NoError(t, err)

	ctx := context.Background()

	msgs, err := reg.Dispatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = reg.Dispatch(ctx, []llms.ToolCall{
		toolCall("call_1", "get_weather", `{"location": "Berlin"}`),
		toolCall("call_2", "echo", `{"text": "hi"}`),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// responses come back in call order regardless of completion order
	for i, msg := range msgs {
		assert.Equal(t, llms.RoleTool, msg.Role)
		require.Len(t, msg.Parts, 1)
		tr, ok := msg.Parts[0].(llms.ToolCallResponse)
		require.True(t, ok)
		switch i {
		case 0:
			assert.Equal(t, "call_1", tr.ToolCallID)
			assert.Equal(t, "get_weather", tr.Name)
			assert.JSONEq(t, `{"temperature": 21}`, tr.Content)
		case 1:
			assert.Equal(t, "call_2", tr.ToolCallID)
			assert.Equal(t, "echo", tr.Name)
			assert.Equal(t, `ok: {"text": "hi"}`, tr.Content)
		}
	}
	assert.EqualValues(t, 1, weather.calls.Load())
	assert.EqualValues(t, 1, echo.calls.Load())
}

func Test_Dispatch_ToolNotFound(t *testing.T) {
	reg, err := tools.NewRegistry(
		&stubTool{name: "get_weather", description: "Get the weather."},
		&stubTool{name: "echo", description: "Echo the input."},
	)
	require.NoError(t, err)

	msgs, err := reg.Dispatch(context.Background(), []llms.ToolCall{
		toolCall("call_1", "get_forecast", `{}`),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	tr := msgs[0].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "call_1", tr.ToolCallID)
	assert.Equal(t, "get_forecast", tr.Name)
	assert.Contains(t, tr.Content, "Tool `get_forecast` not found")
	assert.Contains(t, tr.Content, "Available tools: get_weather, echo")
}

func Test_Dispatch_InputRejected(t *testing.T) {
	picky := &stubTool{
		name:        "picky",
		description: "Reject malformed input.",
		fn: func(ctx context.Context, input string) (string, error) {
			return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
		},
	}
	reg, err := tools.NewRegistry(picky)
	require.NoError(t, err)

	// unmarshal failures turn into a corrective response, not an error
	msgs, err := reg.Dispatch(context.Background(), []llms.ToolCall{
		toolCall("call_1", "picky", `garbage`),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	tr := msgs[0].Parts[0].(llms.ToolCallResponse)
	assert.Contains(t, tr.Content, "Failed to unmarshal input")
	assert.Contains(t, tr.Content, "picky")
}

func Test_Dispatch_ToolError(t *testing.T) {
	failing := &stubTool{
		name:        "failing",
		description: "Always fail.",
		fn: func(ctx context.Context, input string) (string, error) {
			return "", errors.New("backend unavailable")
		},
	}
	reg, err := tools.NewRegistry(failing)
	require.NoError(t, err)

	_, err = reg.Dispatch(context.Background(), []llms.ToolCall{
		toolCall("call_1", "failing", `{}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call tool failing")
	assert.Contains(t, err.Error(), "backend unavailable")
}

type recordingCallback struct {
	events []string
}

func (c *recordingCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	c.events = append(c.events, "start:"+tool.Name())
}

func (c *recordingCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input, output string) {
	c.events = append(c.events, "end:"+tool.Name())
}

func (c *recordingCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	c.events = append(c.events, "error:"+tool.Name())
}

func (c *recordingCallback) OnToolNotFound(ctx context.Context, name string) {
	c.events = append(c.events, "not_found:"+name)
}

func Test_Dispatch_Callback(t *testing.T) {
	reg, err := tools.NewRegistry(
		&stubTool{name: "echo", description: "Echo the input."},
		&stubTool{
			name:        "failing",
			description: "Always fail.",
			fn: func(ctx context.Context, input string) (string, error) {
				return "", errors.New("boom")
			},
		},
	)
	require.NoError(t, err)

	cb := &recordingCallback{}
	reg.WithCallback(cb)

	ctx := context.Background()

	_, err = reg.Dispatch(ctx, []llms.ToolCall{toolCall("call_1", "echo", `{}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"start:echo", "end:echo"}, cb.events)

	cb.events = nil
	_, err = reg.Dispatch(ctx, []llms.ToolCall{toolCall("call_2", "missing", `{}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"not_found:missing"}, cb.events)

	cb.events = nil
	_, err = reg.Dispatch(ctx, []llms.ToolCall{toolCall("call_3", "failing", `{}`)})
	require.Error(t, err)
	assert.Equal(t, []string{"start:failing", "error:failing"}, cb.events)
}

func Test_GetDescriptions(t *testing.T) {
	desc := tools.GetDescriptions(
		&stubTool{name: "get_weather", description: "Get the weather."},
		&stubTool{name: "echo", description: "Echo the input."},
	)
	assert.True(t, strings.HasPrefix(desc, "\n```json\n"))
	assert.Contains(t, desc, `"Name": "get_weather"`)
	assert.Contains(t, desc, `"Description": "Echo the input."`)
}
