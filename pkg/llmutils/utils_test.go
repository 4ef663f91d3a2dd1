package llmutils_test

import (
	"testing"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func Test_CleanJSON(t *testing.T) {
	tcases := []struct {
		name string
		in   string
		exp  string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"prefix", `Sure, here you go: {"a": 1}`, `{"a": 1}`},
		{"postfix", `{"a": 1} Hope that helps!`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"array", `The list: [1, 2, 3] done`, `[1, 2, 3]`},
		{"nested", `x {"a": {"b": 2}} y`, `{"a": {"b": 2}}`},
		{"no_json", `no braces here`, `no braces here`},
		{"empty", ``, ``},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, string(llmutils.CleanJSON([]byte(tc.in))))
		})
	}
}

func Test_TrimBackticks(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, llmutils.TrimBackticks("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, llmutils.TrimBackticks("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, llmutils.TrimBackticks(`{"a": 1}`))
}

func Test_Comments(t *testing.T) {
	withComment := llmutils.AddComment("tool", "get_weather", "error", "check the schema")
	assert.Equal(t, "<!-- @role=tool @name=get_weather @type=error -->\ncheck the schema", withComment)

	assert.Equal(t, "check the schema", llmutils.StripComments(withComment))
	assert.Equal(t, "no comments", llmutils.StripComments("no comments"))
	assert.Equal(t, "before after", llmutils.StripComments("before <!-- hidden -->after"))
}

func Test_CountMessagesContentSize(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:   "id1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "echo",
				Arguments: `{}`,
			},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "id1",
			Name:       "echo",
			Content:    "done",
		}),
	}

	// roles plus every text, call and response field
	exp := uint64(len("human") + len("hello") +
		len("ai") + len("id1") + len("function") + len("echo") + len(`{}`) +
		len("tool") + len("id1") + len("echo") + len("done"))
	assert.Equal(t, exp, llmutils.CountMessagesContentSize(msgs))
}

func Test_CountTokens(t *testing.T) {
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content: "a",
				GenerationInfo: map[string]any{
					"InputTokens":  10,
					"OutputTokens": 4,
					"TotalTokens":  14,
				},
			},
			{
				Content: "b",
				GenerationInfo: map[string]any{
					"InputTokens":  int64(1),
					"OutputTokens": int64(2),
					"TotalTokens":  int64(3),
				},
			},
		},
	}
	in, out, total := llmutils.CountTokens(resp)
	assert.EqualValues(t, 11, in)
	assert.EqualValues(t, 6, out)
	assert.EqualValues(t, 17, total)

	size := llmutils.CountResponseContentSize(resp)
	assert.EqualValues(t, 2, size)
}

func Test_FindLastUserQuestion(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be helpful"),
		llms.MessageFromTextParts(llms.RoleHuman, "first question"),
		llms.MessageFromTextParts(llms.RoleAI, "answer"),
		llms.MessageFromTextParts(llms.RoleHuman, "second question"),
	}
	assert.Equal(t, "second question", llmutils.FindLastUserQuestion(msgs))
	assert.Empty(t, llmutils.FindLastUserQuestion(nil))
}

func Test_Stringify(t *testing.T) {
	assert.Equal(t, "plain", llmutils.Stringify("plain"))

	type payload struct {
		Name string `json:"name"`
	}
	out := llmutils.Stringify(payload{Name: "x"})
	assert.Contains(t, out, "```json")
	assert.Contains(t, out, `"name": "x"`)
}

func Test_EnsureEndsWithNewline(t *testing.T) {
	assert.Equal(t, "", llmutils.EnsureEndsWithNewline("  "))
	assert.Equal(t, "text\n", llmutils.EnsureEndsWithNewline("text"))
	assert.Equal(t, "text\n", llmutils.EnsureEndsWithNewline("  text\n  "))
}

func Test_JSONHelpers(t *testing.T) {
	assert.Equal(t, `{"a":1}`, llmutils.ToJSON(map[string]int{"a": 1}))
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.ToJSONIndent(map[string]int{"a": 1}))
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.JSONIndent(`{"a":1}`))
	assert.Equal(t, "a: 1\n", llmutils.ToYAML(map[string]int{"a": 1}))
	assert.Equal(t, "\n```json\n{}\n```\n", llmutils.BackticksJSON("{}\n"))
	assert.Equal(t, "\n```yaml\na: 1\n```\n", llmutils.BackticksYAML("a: 1\n"))
}
