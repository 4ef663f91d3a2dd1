// Package chathandler exposes the demo chat route and the devtools endpoint.
//
// The chat route runs a tool-calling loop against the configured model:
// the model response is streamed to the client as server-sent events, tool
// calls requested by the model are dispatched through the tools registry,
// and their results are fed back to the model until it produces a final
// answer. Messages are persisted in the configured store.
package chathandler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llmutils"
	"github.com/JoviDeCroock/tanstack-ai/pkg/metricskey"
	"github.com/JoviDeCroock/tanstack-ai/store"
	"github.com/JoviDeCroock/tanstack-ai/tools"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/JoviDeCroock/tanstack-ai", "chathandler")

// DefaultMaxToolRounds bounds the generate/dispatch loop for one chat request.
const DefaultMaxToolRounds = 10

// TenantHeader carries the tenant ID of the chat request.
const TenantHeader = "X-Tenant-ID"

// Config configures the chat handler.
type Config struct {
	// Model generates responses.
	Model llms.Model
	// Registry holds the tools exposed to the model.
	Registry *tools.Registry
	// Store persists chat history. Required.
	Store store.MessageStore
	// SystemPrompt is prepended to every conversation, optional.
	SystemPrompt string
	// MaxToolRounds bounds the generate/dispatch loop, DefaultMaxToolRounds if zero.
	MaxToolRounds int
}

// Handler serves the chat and devtools routes.
type Handler struct {
	model         llms.Model
	registry      *tools.Registry
	store         store.MessageStore
	systemPrompt  string
	maxToolRounds int
}

// New creates a chat handler.
func New(cfg Config) (*Handler, error) {
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	return &Handler{
		model:         cfg.Model,
		registry:      cfg.Registry,
		store:         cfg.Store,
		systemPrompt:  cfg.SystemPrompt,
		maxToolRounds: values.NumbersCoalesce(cfg.MaxToolRounds, DefaultMaxToolRounds),
	}, nil
}

// RegisterRoutes mounts the chat and devtools routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat", h.HandleChat)
	mux.HandleFunc("/api/devtools/tools", h.HandleDevToolsTools)
}

// ChatRequest is the POST body of the chat route.
type ChatRequest struct {
	// ChatID identifies the conversation, a new one is created when empty.
	ChatID string `json:"chat_id"`
	// Message is the user message.
	Message string `json:"message"`
}

type textDeltaEvent struct {
	Delta string `json:"delta"`
}

type toolCallEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolResultEvent struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type doneEvent struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// HandleChat handles POST chat requests, streaming the run as SSE.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is supported", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	chatCtx := chatmodel.NewChatContext(r.Header.Get(TenantHeader), req.ChatID, nil)
	ctx := chatmodel.WithChatContext(r.Context(), chatCtx)
	chatID := chatCtx.GetChatID()

	sse, err := newSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	started := time.Now()
	content, err := h.run(ctx, sse, req.Message)
	metricskey.PerfChatRun.MeasureSince(started, chatID)
	if err != nil {
		metricskey.StatsChatRunsFailed.IncrCounter(1, chatID)
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "chat_run_failed",
			"chat_id", chatID,
			"err", err.Error(),
		)
		_ = sse.Send(EventError, errorEvent{Error: err.Error()})
		return
	}

	metricskey.StatsChatRunsSucceeded.IncrCounter(1, chatID)
	_ = sse.Send(EventDone, doneEvent{ChatID: chatID, Content: content})
}

// run executes the generate/dispatch loop and returns the final response text.
func (h *Handler) run(ctx context.Context, sse *sseWriter, userMessage string) (string, error) {
	chatID := chatmodel.GetChatID(ctx)
	modelName := h.model.GetName()

	var messageHistory []llms.Message
	if h.systemPrompt != "" {
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleSystem, h.systemPrompt))
	}
	messageHistory = append(messageHistory, h.store.Messages(ctx)...)

	humanMsg := llms.MessageFromTextParts(llms.RoleHuman, userMessage)
	messageHistory = append(messageHistory, humanMsg)
	if err := h.store.Add(ctx, humanMsg); err != nil {
		return "", errors.WithMessage(err, "failed to persist user message")
	}

	callOpts := []llms.CallOption{
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return sse.Send(EventTextDelta, textDeltaEvent{Delta: string(chunk)})
		}),
	}
	if h.registry.Len() > 0 {
		if !h.model.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
			return "", errors.New("the model does not support function calling")
		}
		callOpts = append(callOpts, llms.WithTools(h.registry.LLMTools()))
	}

	for round := 0; round < h.maxToolRounds; round++ {
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messageHistory)), chatID, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(llmutils.CountMessagesContentSize(messageHistory)), chatID, modelName)

		resp, err := h.model.GenerateContent(ctx, messageHistory, callOpts...)
		if err != nil {
			return "", errors.WithMessage(err, "failed to generate content")
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("model returned no choices")
		}

		metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), chatID, modelName)
		tokensIn, tokensOut, _ := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), chatID, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), chatID, modelName)

		var toolCalls []llms.ToolCall
		for _, choice := range resp.Choices {
			toolCalls = append(toolCalls, choice.ToolCalls...)
		}

		if len(toolCalls) == 0 {
			content := resp.Choices[0].Content
			aiMsg := llms.MessageFromTextParts(llms.RoleAI, content)
			if err := h.store.Add(ctx, aiMsg); err != nil {
				return "", errors.WithMessage(err, "failed to persist response")
			}
			return content, nil
		}

		for _, tc := range toolCalls {
			if err := sse.Send(EventToolCall, toolCallEvent{
				ID:        tc.ID,
				Name:      tc.FunctionCall.Name,
				Arguments: tc.FunctionCall.Arguments,
			}); err != nil {
				return "", err
			}
		}

		aiMsg := llms.MessageFromToolCalls(llms.RoleAI, toolCalls...)
		messageHistory = append(messageHistory, aiMsg)
		if err := h.store.Add(ctx, aiMsg); err != nil {
			return "", errors.WithMessage(err, "failed to persist tool calls")
		}

		toolMsgs, err := h.registry.Dispatch(ctx, toolCalls)
		if err != nil {
			return "", err
		}

		for _, msg := range toolMsgs {
			if len(msg.Parts) != 1 {
				continue
			}
			if tr, ok := msg.Parts[0].(llms.ToolCallResponse); ok {
				if err := sse.Send(EventToolResult, toolResultEvent{
					ID:      tr.ToolCallID,
					Name:    tr.Name,
					Content: tr.Content,
				}); err != nil {
					return "", err
				}
			}
			messageHistory = append(messageHistory, msg)
			if err := h.store.Add(ctx, msg); err != nil {
				return "", errors.WithMessage(err, "failed to persist tool response")
			}
		}
	}

	return "", errors.Errorf("tool call rounds exceeded limit of %d", h.maxToolRounds)
}

// devToolsTool is one tool definition in the devtools dump.
type devToolsTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters,omitempty"`
}

// devToolsResponse is the payload of the devtools tools endpoint.
type devToolsResponse struct {
	Tools []devToolsTool `json:"tools"`
}

// HandleDevToolsTools handles GET requests for the registered tool
// definitions, in registration order.
func (h *Handler) HandleDevToolsTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is supported", http.StatusMethodNotAllowed)
		return
	}

	resp := devToolsResponse{
		Tools: make([]devToolsTool, 0, h.registry.Len()),
	}
	for _, t := range h.registry.LLMTools() {
		resp.Tools = append(resp.Tools, devToolsTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}

	jsonData, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonData)
}
