// Package llmutils holds small helpers for working with model output:
// extracting JSON from prose and code fences, structured markdown comments,
// and content size / token accounting.
package llmutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/effective-security/x/values"
	"gopkg.in/yaml.v3"
)

// CleanJSON extracts the JSON value from model output that wraps it in
// prose, like "Here you go: {json}". Anything before the first opening
// brace or bracket and after the last closing one is dropped.
func CleanJSON(bs []byte) []byte {
	if i := firstIndexAny(bs, '{', '['); i >= 0 {
		bs = bs[i:]
	}
	if i := lastIndexAny(bs, '}', ']'); i >= 0 {
		bs = bs[:i+1]
	}
	return bs
}

func firstIndexAny(bs []byte, a, b byte) int {
	ia, ib := bytes.IndexByte(bs, a), bytes.IndexByte(bs, b)
	switch {
	case ia < 0:
		return ib
	case ib < 0:
		return ia
	default:
		return min(ia, ib)
	}
}

func lastIndexAny(bs []byte, a, b byte) int {
	return max(bytes.LastIndexByte(bs, a), bytes.LastIndexByte(bs, b))
}

// TrimBackticks removes a ```json or ``` code fence around the text.
func TrimBackticks(text string) string {
	return string(BytesTrimBackticks([]byte(text)))
}

var fence = []byte("```")

// BytesTrimBackticks removes a ```json or ``` code fence around the content.
func BytesTrimBackticks(bs []byte) []byte {
	open := bytes.Index(bs, fence)
	if open == -1 {
		return bs
	}
	rest := bs[open+len(fence):]

	// drop the language marker, unless the JSON starts on the fence line
	if nl := bytes.IndexByte(rest, '\n'); nl >= 0 {
		if brace := firstIndexAny(rest, '{', '['); brace < 0 || nl < brace {
			rest = rest[nl+1:]
		}
	}

	closing := bytes.LastIndex(rest, fence)
	if closing == -1 {
		return rest
	}
	return bytes.TrimSpace(rest[:closing])
}

// AddComment prepends a structured <!-- --> comment to the content.
func AddComment(role, name, typ, content string) string {
	return fmt.Sprintf("<!-- @role=%s @name=%s @type=%s -->\n", role, name, typ) + content
}

// StripComments removes a <!-- --> comment from model output.
func StripComments(text string) string {
	before, rest, found := strings.Cut(text, "<!--")
	if !found {
		return text
	}
	_, after, found := strings.Cut(rest, "-->")
	if !found {
		return text
	}
	after = strings.TrimPrefix(after, "\n")
	return before + after
}

func JSONIndent(body string) string {
	var buf bytes.Buffer
	_ = json.Indent(&buf, []byte(body), "", "\t")
	return buf.String()
}

func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

func ToYAML(val any) string {
	out, _ := yaml.Marshal(val)
	return string(out)
}

func BackticksJSON(js string) string {
	return "\n```json\n" + strings.TrimSpace(js) + "\n```\n"
}

func BackticksYAML(doc string) string {
	return "\n```yaml\n" + strings.TrimSpace(doc) + "\n```\n"
}

type Stringer interface {
	String() string
}

// Stringify renders a value for inclusion in a prompt: strings and
// Stringers pass through, everything else becomes fenced JSON.
func Stringify(s any) string {
	switch v := s.(type) {
	case string:
		return v
	case Stringer:
		return v.String()
	default:
		return BackticksJSON(ToJSONIndent(s))
	}
}

// CountMessagesContentSize returns the total byte size of the message content.
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, msg := range msgs {
		size += uint64(len(msg.Role))
		for _, part := range msg.Parts {
			size += partSize(part)
		}
	}
	return size
}

func partSize(part llms.ContentPart) uint64 {
	switch p := part.(type) {
	case llms.TextContent:
		return uint64(len(p.Text))
	case llms.ImageURLContent:
		return uint64(len(p.URL) + len(p.Detail))
	case llms.ToolCall:
		return toolCallSize(p)
	case llms.ToolCallResponse:
		return uint64(len(p.ToolCallID) + len(p.Name) + len(p.Content))
	}
	return 0
}

func toolCallSize(tc llms.ToolCall) uint64 {
	size := uint64(len(tc.ID) + len(tc.Type))
	if tc.FunctionCall != nil {
		size += uint64(len(tc.FunctionCall.Name) + len(tc.FunctionCall.Arguments))
	}
	return size
}

// CountResponseContentSize returns the total byte size of the response content.
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	var size uint64
	for _, choice := range resp.Choices {
		size += uint64(len(choice.Content))
		for _, tc := range choice.ToolCalls {
			size += toolCallSize(tc)
		}
	}
	return size
}

// CountTokens sums token usage over all choices, as reported by the provider
// in GenerationInfo.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	for _, choice := range resp.Choices {
		info := values.MapAny(choice.GenerationInfo)
		in += info.Int64("InputTokens")
		out += info.Int64("OutputTokens")
		total += info.Int64("TotalTokens")
	}
	return
}

// FindLastUserQuestion returns the text of the most recent human message.
func FindLastUserQuestion(messages []llms.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.RoleHuman {
			continue
		}
		for _, part := range messages[i].Parts {
			if text, ok := part.(llms.TextContent); ok {
				return text.Text
			}
		}
	}
	return ""
}

// EnsureEndsWithNewline trims surrounding whitespace and terminates the
// string with a single newline. Empty input stays empty.
func EnsureEndsWithNewline(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return s + "\n"
}
