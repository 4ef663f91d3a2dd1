package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llmutils"
	"github.com/JoviDeCroock/tanstack-ai/pkg/metricskey"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/JoviDeCroock/tanstack-ai", "tools")

// Registry holds a set of tools defined together. Registration order is
// preserved, names are unique case-insensitively.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]ITool
	names    []string
	tools    []ITool
	llmTools []llms.Tool
	callback Callback
}

// NewRegistry creates a registry from the given tools.
func NewRegistry(list ...ITool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]ITool),
	}
	for _, tool := range list {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithCallback sets the callback receiving tool lifecycle events.
func (r *Registry) WithCallback(cb Callback) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = cb
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool ITool) error {
	name := tool.Name()
	if name == "" {
		return errors.New("tool name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(name)
	if _, ok := r.byName[key]; ok {
		return errors.Errorf("tool already registered: %s", name)
	}
	r.byName[key] = tool
	r.names = append(r.names, name)
	r.tools = append(r.tools, tool)
	r.llmTools = append(r.llmTools, llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        name,
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		},
	})
	return nil
}

// Get returns the tool by name, case-insensitively.
func (r *Registry) Get(name string) (ITool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.byName[strings.ToLower(name)]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []ITool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ITool(nil), r.tools...)
}

// LLMTools returns the tool definitions in the shape model calls expect.
func (r *Registry) LLMTools() []llms.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]llms.Tool(nil), r.llmTools...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

type dispatchResult struct {
	toolCall llms.ToolCall
	response string
	err      error
	index    int
}

// Dispatch executes the given tool calls, in parallel when there is more than
// one, and returns one tool response message per call, in call order.
// A call naming an unknown tool yields a corrective response for the model
// rather than an error; tool errors other than input unmarshal failures abort
// the dispatch.
func (r *Registry) Dispatch(ctx context.Context, toolCalls []llms.ToolCall) ([]llms.Message, error) {
	if len(toolCalls) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	callback := r.callback
	availableTools := strings.Join(r.names, ", ")
	r.mu.RUnlock()

	resultChan := make(chan dispatchResult, len(toolCalls))

	var wg sync.WaitGroup
	wg.Add(len(toolCalls))

	for i, toolCall := range toolCalls {
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			toolName := tc.FunctionCall.Name
			toolArgs := tc.FunctionCall.Arguments

			tool, ok := r.Get(toolName)
			if !ok {
				metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
				if callback != nil {
					callback.OnToolNotFound(ctx, toolName)
				}
				logger.ContextKV(ctx, xlog.WARNING,
					"status", "tool_not_found",
					"tool_name", toolName,
					"available_tools", availableTools,
				)
				resultChan <- dispatchResult{
					toolCall: tc,
					response: fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", toolName, availableTools),
					index:    index,
				}
				return
			}

			if callback != nil {
				callback.OnToolStart(ctx, tool, toolArgs)
			}

			started := time.Now()
			res, err := tool.Call(ctx, toolArgs)
			metricskey.PerfToolCall.MeasureSince(started, toolName)

			if err != nil {
				metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
				if callback != nil {
					callback.OnToolError(ctx, tool, toolArgs, err)
				}
				if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
					metricskey.StatsToolInputRejected.IncrCounter(1, toolName)
					res = llmutils.AddComment("tool", toolName, "error", "Failed to unmarshal input, check the JSON schema and try again.")
				} else {
					resultChan <- dispatchResult{
						toolCall: tc,
						err:      errors.WithMessagef(err, "failed to call tool %s", toolName),
						index:    index,
					}
					return
				}
			} else {
				metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
				if callback != nil {
					callback.OnToolEnd(ctx, tool, toolArgs, res)
				}
			}

			resultChan <- dispatchResult{
				toolCall: tc,
				response: res,
				index:    index,
			}
		}(i, toolCall)
	}

	wg.Wait()
	close(resultChan)

	results := make([]dispatchResult, len(toolCalls))
	for result := range resultChan {
		if result.index >= 0 && result.index < len(results) {
			results[result.index] = result
		}
	}

	messages := make([]llms.Message, 0, len(results))
	for _, result := range results {
		if result.err != nil {
			return nil, result.err
		}
		messages = append(messages, llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: result.toolCall.ID,
			Name:       result.toolCall.FunctionCall.Name,
			Content:    result.response,
		}))
	}
	return messages, nil
}
