// Package store provides persistence for chat history keyed by the tenant
// and chat IDs carried in the request context.
package store

import (
	"context"
	"time"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/JoviDeCroock/tanstack-ai", "store")

// MessageStore keeps the message history of a single chat.
// The tenant and chat IDs are taken from the chat context on ctx.
type MessageStore interface {
	// Messages returns the stored messages in the order they were added.
	Messages(ctx context.Context) []llms.Message
	// Add appends a message to the chat history.
	Add(ctx context.Context, msg llms.Message) error
	// Reset removes the chat history and metadata.
	Reset(ctx context.Context) error

	// UpdateChat creates or updates the chat title and metadata.
	UpdateChat(ctx context.Context, title string, metadata map[string]any) error
	// ListChats returns the chat IDs for the tenant from context.
	ListChats(ctx context.Context) ([]string, error)
	// GetChatInfo returns the chat metadata with messages.
	// If id is empty, the chat ID from context is used.
	GetChatInfo(ctx context.Context, id string) (*ChatInfo, error)
	// GetChatTitle returns the chat title, or empty if the chat is not persisted.
	GetChatTitle(ctx context.Context, id string) (string, error)
}

// MessageStoreManager extends MessageStore with maintenance operations.
type MessageStoreManager interface {
	MessageStore

	ListTenants(ctx context.Context) ([]string, error)
	Cleanup(ctx context.Context, tenantID string, olderThan time.Duration) (uint32, error)
}

// ChatInfo describes a chat and its metadata.
type ChatInfo struct {
	TenantID  string         `json:"tenant_id"`
	ChatID    string         `json:"chat_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Messages  []llms.Message `json:"messages,omitempty"`
}
