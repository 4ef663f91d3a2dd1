package llms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnexpectedRole is returned when a message role is of an unexpected type.
var ErrUnexpectedRole = errors.New("unexpected role")

// Role identifies the author of a chat message.
type Role string

const (
	// RoleAI marks a message produced by the model.
	RoleAI Role = "ai"
	// RoleHuman marks a message from the user.
	RoleHuman Role = "human"
	// RoleSystem marks a system instruction.
	RoleSystem Role = "system"
	// RoleTool marks a tool result fed back to the model.
	RoleTool Role = "tool"
)

// Message is one entry of a conversation: a role and an ordered list of
// content parts. A plain user turn is RoleHuman with a single text part;
// a model turn asking for tools is RoleAI with ToolCall parts.
type Message struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// ContentPart is one piece of message content.
type ContentPart interface {
	isPart()
}

// TextContent is plain text.
type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string { return tc.Text }

func (TextContent) isPart() {}

// TextPart creates TextContent from a string.
func TextPart(s string) TextContent {
	return TextContent{Text: s}
}

// ImageURLContent references an image by URL. Detail is the provider's
// resolution hint, e.g. "low" or "high".
type ImageURLContent struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

func (ic ImageURLContent) String() string { return ic.URL }

func (ImageURLContent) isPart() {}

// ImageURLPart creates ImageURLContent for the URL.
func ImageURLPart(url string) ImageURLContent {
	return ImageURLContent{URL: url}
}

// FunctionCall names the function the model wants to invoke, with the
// arguments as a JSON string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a tool invocation requested by the model. Type is typically
// "function".
type ToolCall struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	FunctionCall *FunctionCall `json:"function,omitempty"`
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall: %s (%s), input: %s", tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
}

func (ToolCall) isPart() {}

// ToolCallResponse carries the output of an executed tool call back to the
// model.
type ToolCallResponse struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

func (tr ToolCallResponse) String() string {
	return fmt.Sprintf("ToolCallResponse: %s (%s), response size: %d", tr.ToolCallID, tr.Name, len(tr.Content))
}

func (ToolCallResponse) isPart() {}

// ContentResponse is the result of a GenerateContent call. Providers may
// return more than one choice.
type ContentResponse struct {
	Choices []*ContentChoice
}

// ContentChoice is a single generation alternative.
type ContentChoice struct {
	// Content is the generated text.
	Content string `json:"content"`
	// StopReason reports why generation ended.
	StopReason string `json:"stop_reason"`
	// GenerationInfo carries provider-specific metadata, like token usage.
	GenerationInfo map[string]any `json:"generation_info"`
	// ToolCalls lists the tool invocations the model requested.
	ToolCalls []ToolCall `json:"tool_calls"`
}

// MessageFromParts builds a message from arbitrary parts.
func MessageFromParts(role Role, parts ...ContentPart) Message {
	return Message{Role: role, Parts: parts}
}

// MessageFromTextParts builds a message where every part is text.
func MessageFromTextParts(role Role, texts ...string) Message {
	parts := make([]ContentPart, len(texts))
	for i, t := range texts {
		parts[i] = TextPart(t)
	}
	return Message{Role: role, Parts: parts}
}

// MessageFromToolCalls builds a message holding tool call parts.
func MessageFromToolCalls(role Role, toolCalls ...ToolCall) Message {
	parts := make([]ContentPart, len(toolCalls))
	for i, tc := range toolCalls {
		parts[i] = tc
	}
	return Message{Role: role, Parts: parts}
}

// MessageFromToolResponse builds a message holding a single tool response.
func MessageFromToolResponse(role Role, resp ToolCallResponse) Message {
	return MessageFromParts(role, resp)
}

// GetContent renders all parts as text, one part per line.
func (m Message) GetContent() string {
	var buf strings.Builder
	for _, part := range m.Parts {
		if n := buf.Len(); n > 0 && buf.String()[n-1] != '\n' {
			buf.WriteByte('\n')
		}
		switch p := part.(type) {
		case TextContent:
			buf.WriteString(p.Text)
		case ImageURLContent:
			buf.WriteString("URL: ")
			buf.WriteString(p.URL)
		case ToolCall:
			js, _ := json.Marshal(p)
			buf.WriteString("Tool Call: ")
			buf.Write(js)
			buf.WriteByte('\n')
		case ToolCallResponse:
			js, _ := json.Marshal(p)
			buf.WriteString("Response: ")
			buf.Write(js)
			buf.WriteByte('\n')
		}
	}
	if n := buf.Len(); n > 0 && buf.String()[n-1] != '\n' {
		buf.WriteByte('\n')
	}
	return buf.String()
}

// TextFromParts joins the text parts with newlines, skipping everything else.
func TextFromParts(parts []ContentPart) string {
	var texts []string
	for _, p := range parts {
		if tp, ok := p.(TextContent); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}
