package store

import (
	"context"
	"sync"
	"time"

	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
)

type memChat struct {
	info     ChatInfo
	messages []llms.Message
}

type inMemory struct {
	mu      sync.RWMutex
	storage map[string]map[string]*memChat
}

// NewMemoryStore returns a MessageStore that keeps chats in process memory.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	chat := m.storage[tenantID][chatID]
	if chat == nil {
		return nil
	}
	return chat.messages
}

func (m *inMemory) Add(ctx context.Context, msg llms.Message) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	chat := m.chat(tenantID, chatID)
	chat.messages = append(chat.messages, msg)
	chat.info.UpdatedAt = time.Now()
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tenant := m.storage[tenantID]; tenant != nil {
		delete(tenant, chatID)
	}
	return nil
}

func (m *inMemory) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	chat := m.chat(tenantID, chatID)
	if title != "" {
		chat.info.Title = title
	}
	if metadata != nil {
		if chat.info.Metadata == nil {
			chat.info.Metadata = make(map[string]any)
		}
		for k, v := range metadata {
			chat.info.Metadata[k] = v
		}
	}
	chat.info.UpdatedAt = time.Now()
	return nil
}

func (m *inMemory) ListChats(ctx context.Context) ([]string, error) {
	tenantID, _, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	tenant := m.storage[tenantID]
	ids := make([]string, 0, len(tenant))
	for id := range tenant {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *inMemory) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = chatID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	chat := m.chat(tenantID, id)
	info := chat.info
	info.Messages = chat.messages
	return &info, nil
}

func (m *inMemory) GetChatTitle(ctx context.Context, id string) (string, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = chatID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	chat := m.storage[tenantID][id]
	if chat == nil {
		return "", nil
	}
	return chat.info.Title, nil
}

// chat returns the chat record, creating it on first use.
// Callers must hold the write lock.
func (m *inMemory) chat(tenantID, chatID string) *memChat {
	if m.storage == nil {
		m.storage = make(map[string]map[string]*memChat)
	}
	tenant := m.storage[tenantID]
	if tenant == nil {
		tenant = make(map[string]*memChat)
		m.storage[tenantID] = tenant
	}
	chat := tenant[chatID]
	if chat == nil {
		now := time.Now()
		chat = &memChat{
			info: ChatInfo{
				TenantID:  tenantID,
				ChatID:    chatID,
				Title:     "New Chat",
				CreatedAt: now,
				UpdatedAt: now,
			},
		}
		tenant[chatID] = chat
	}
	return chat
}
