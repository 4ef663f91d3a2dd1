package store

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// maxStoredMessages bounds the history kept per chat.
const maxStoredMessages = 50

// redisStore persists chat history in Redis under the prefix:
//   - <prefix>/chatstore/<tenant>/messages/<chat>  list of messages
//   - <prefix>/chatstore/<tenant>/info/<chat>      chat metadata
//   - <prefix>/chatstore/<tenant>/chats            set of chat IDs
type redisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) MessageStore {
	return &redisStore{client: client, prefix: prefix}
}

func NewRedisStoreManager(client *redis.Client, prefix string) MessageStoreManager {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) messagesKey(tenantID, chatID string) string {
	return path.Join(s.prefix, "chatstore", tenantID, "messages", chatID)
}

func (s *redisStore) infoKey(tenantID, chatID string) string {
	return path.Join(s.prefix, "chatstore", tenantID, "info", chatID)
}

func (s *redisStore) chatSetKey(tenantID string) string {
	return path.Join(s.prefix, "chatstore", tenantID, "chats")
}

func (s *redisStore) Messages(ctx context.Context) []llms.Message {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "GetTenantAndChatID", "err", err.Error())
		return nil
	}

	items, err := s.client.LRange(ctx, s.messagesKey(tenantID, chatID), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "LRange", "err", err.Error())
		return nil
	}

	msgs := make([]llms.Message, 0, len(items))
	for _, item := range items {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal", "err", err.Error())
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	return msgs
}

func (s *redisStore) Add(ctx context.Context, msg llms.Message) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	key := s.messagesKey(tenantID, chatID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxStoredMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to append message")
	}

	// bump UpdatedAt, creating the chat info on first write
	return s.UpdateChat(ctx, "", nil)
}

func (s *redisStore) Reset(ctx context.Context) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.messagesKey(tenantID, chatID))
	pipe.Del(ctx, s.infoKey(tenantID, chatID))
	pipe.SRem(ctx, s.chatSetKey(tenantID), chatID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to reset chat")
	}
	return nil
}

// UpdateChat sets the title and merges metadata for the chat from context,
// creating the chat info when it does not exist yet.
func (s *redisStore) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	chat, err := s.loadOrCreateChat(ctx, "")
	if err != nil {
		return err
	}

	if title != "" {
		chat.Title = title
	}
	if metadata != nil {
		if chat.Metadata == nil {
			chat.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			chat.Metadata[k] = v
		}
	}
	chat.UpdatedAt = time.Now()

	return s.saveChat(ctx, chat, false)
}

func (s *redisStore) ListChats(ctx context.Context) ([]string, error) {
	tenantID, _, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, s.chatSetKey(tenantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list chats")
	}
	return ids, nil
}

func (s *redisStore) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	chat, err := s.loadOrCreateChat(ctx, id)
	if err != nil {
		return nil, err
	}
	chat.Messages = s.Messages(ctx)
	return chat, nil
}

// GetChatTitle returns the chat title, or empty when the chat was never
// persisted. Unlike GetChatInfo it does not create the chat.
func (s *redisStore) GetChatTitle(ctx context.Context, id string) (string, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = chatID
	}

	data, err := s.client.Get(ctx, s.infoKey(tenantID, id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to get chat info")
	}

	var chat ChatInfo
	if err := json.Unmarshal([]byte(data), &chat); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal chat info")
	}
	return chat.Title, nil
}

func (s *redisStore) ListTenants(ctx context.Context) ([]string, error) {
	root := path.Join(s.prefix, "chatstore")
	iter := s.client.Scan(ctx, 0, root+"/*", 0).Iterator()

	seen := make(map[string]struct{})
	for iter.Next(ctx) {
		rest := strings.TrimPrefix(iter.Val(), root+"/")
		if tenant, _, ok := strings.Cut(rest, "/"); ok {
			seen[tenant] = struct{}{}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan tenants")
	}

	tenants := make([]string, 0, len(seen))
	for tenant := range seen {
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

// Cleanup deletes the tenant's chats whose last update is older than the
// cutoff and returns the number of chats removed.
func (s *redisStore) Cleanup(ctx context.Context, tenantID string, olderThan time.Duration) (uint32, error) {
	chatSet := s.chatSetKey(tenantID)
	ids, err := s.client.SMembers(ctx, chatSet).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to list chats")
	}

	cutoff := time.Now().Add(-olderThan)
	var deleted uint32
	for _, id := range ids {
		infoKey := s.infoKey(tenantID, id)
		data, err := s.client.Get(ctx, infoKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return deleted, errors.Wrap(err, "failed to get chat info")
		}

		var chat ChatInfo
		if err := json.Unmarshal([]byte(data), &chat); err != nil {
			return deleted, errors.Wrap(err, "failed to unmarshal chat info")
		}
		if !chat.UpdatedAt.Before(cutoff) {
			continue
		}

		pipe := s.client.Pipeline()
		pipe.Del(ctx, infoKey)
		pipe.Del(ctx, s.messagesKey(tenantID, id))
		pipe.SRem(ctx, chatSet, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return deleted, errors.Wrap(err, "failed to delete chat")
		}
		deleted++
	}
	return deleted, nil
}

// loadOrCreateChat reads the chat info for id, falling back to the chat ID
// from context when id is empty. A missing chat is initialized and registered
// in the tenant's chat set.
func (s *redisStore) loadOrCreateChat(ctx context.Context, id string) (*ChatInfo, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = chatID
	}

	data, err := s.client.Get(ctx, s.infoKey(tenantID, id)).Result()
	if err == nil {
		chat := &ChatInfo{}
		if err := json.Unmarshal([]byte(data), chat); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal chat info")
		}
		return chat, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "failed to get chat info")
	}

	now := time.Now()
	chat := &ChatInfo{
		TenantID:  tenantID,
		ChatID:    id,
		Title:     "New Chat",
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  make(map[string]any),
	}
	if err := s.saveChat(ctx, chat, true); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *redisStore) saveChat(ctx context.Context, chat *ChatInfo, isNew bool) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.infoKey(chat.TenantID, chat.ChatID), data, 0)
	if isNew {
		pipe.SAdd(ctx, s.chatSetKey(chat.TenantID), chat.ChatID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store chat info")
	}
	return nil
}
