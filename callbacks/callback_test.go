package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/JoviDeCroock/tanstack-ai/callbacks"
	"github.com/JoviDeCroock/tanstack-ai/tools"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
)

type stubTool struct {
	name string
}

func (t *stubTool) Name() string                   { return t.name }
func (t *stubTool) Description() string            { return "stub" }
func (t *stubTool) Parameters() *jsonschema.Schema { return &jsonschema.Schema{Type: "object"} }
func (t *stubTool) Call(ctx context.Context, input string) (string, error) {
	return "", nil
}

func Test_Printer(t *testing.T) {
	ctx := context.Background()
	tool := &stubTool{name: "get_weather"}

	var buf bytes.Buffer
	p := callbacks.NewPrinter(&buf, callbacks.ModeDefault)

	p.OnToolStart(ctx, tool, `{"location": "Berlin"}`)
	p.OnToolEnd(ctx, tool, `{"location": "Berlin"}`, `{"temperature": 21}`)
	p.OnToolError(ctx, tool, `{}`, errors.New("boom"))
	p.OnToolNotFound(ctx, "get_forecast")

	out := buf.String()
	assert.Contains(t, out, "Tool Start: get_weather\n")
	assert.Contains(t, out, `Input: {"location": "Berlin"}`)
	assert.Contains(t, out, "Tool End: get_weather\n")
	assert.NotContains(t, out, "Output:")
	assert.Contains(t, out, "Tool Error: get_weather: boom\n")
	assert.Contains(t, out, "Tool Not Found: get_forecast\n")
}

func Test_Printer_Verbose(t *testing.T) {
	var buf bytes.Buffer
	p := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)

	p.OnToolEnd(context.Background(), &stubTool{name: "echo"}, `{}`, "result text")
	assert.Contains(t, buf.String(), "Output: result text\n")
}

type countingCallback struct {
	starts, ends, errs, notFound int
}

func (c *countingCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	c.starts++
}

func (c *countingCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input, output string) {
	c.ends++
}

func (c *countingCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	c.errs++
}

func (c *countingCallback) OnToolNotFound(ctx context.Context, name string) {
	c.notFound++
}

func Test_Fanout(t *testing.T) {
	ctx := context.Background()
	tool := &stubTool{name: "echo"}

	first := &countingCallback{}
	second := &countingCallback{}

	f := callbacks.NewFanout(first, callbacks.NewNoop())
	f.Add(second)

	f.OnToolStart(ctx, tool, `{}`)
	f.OnToolEnd(ctx, tool, `{}`, "out")
	f.OnToolError(ctx, tool, `{}`, errors.New("boom"))
	f.OnToolNotFound(ctx, "missing")

	for _, c := range []*countingCallback{first, second} {
		assert.Equal(t, 1, c.starts)
		assert.Equal(t, 1, c.ends)
		assert.Equal(t, 1, c.errs)
		assert.Equal(t, 1, c.notFound)
	}
}
