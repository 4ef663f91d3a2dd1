package chatmodel

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/google/uuid"
)

// ChatContext identifies a chat session: the tenant, the chat ID, and
// request-scoped metadata.
type ChatContext interface {
	GetChatID() string
	GetTenantID() string
	// AppData returns the immutable app data supplied at creation.
	AppData() any
	// GetMetadata retrieves metadata by key.
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key.
	SetMetadata(key string, value any)
}

// NewChatContext creates a chat context. An empty tenant becomes "default";
// an empty chat ID starts a new conversation with a generated ID.
func NewChatContext(tenantID, chatID string, appData any) ChatContext {
	return &chatContext{
		tenantID: values.StringsCoalesce(tenantID, "default"),
		chatID:   values.StringsCoalesce(chatID, NewChatID()),
		appData:  appData,
	}
}

// NewChatID generates a new chat ID.
func NewChatID() string {
	return uuid.NewString()
}

type chatContext struct {
	tenantID string
	chatID   string
	appData  any
	metadata sync.Map
}

func (c *chatContext) GetChatID() string   { return c.chatID }
func (c *chatContext) GetTenantID() string { return c.tenantID }
func (c *chatContext) AppData() any        { return c.appData }

func (c *chatContext) GetMetadata(key string) (any, bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

type contextKey int

const keyContext contextKey = iota

// WithChatContext attaches the chat context to ctx.
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext returns the chat context from ctx, or nil.
func GetChatContext(ctx context.Context) ChatContext {
	chatCtx, _ := ctx.Value(keyContext).(ChatContext)
	return chatCtx
}

// GetChatID returns the chat ID from ctx, or empty when no chat context is
// attached.
func GetChatID(ctx context.Context) string {
	if chatCtx := GetChatContext(ctx); chatCtx != nil {
		return chatCtx.GetChatID()
	}
	return ""
}

// GetTenantAndChatID returns the tenant and chat IDs from ctx.
func GetTenantAndChatID(ctx context.Context) (tenantID, chatID string, err error) {
	chatCtx := GetChatContext(ctx)
	if chatCtx == nil {
		return "", "", errors.New("chat context not found")
	}
	return chatCtx.GetTenantID(), chatCtx.GetChatID(), nil
}
