package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
	errx "github.com/FinMentor-core-poc-v1/server/internal/core/error"
	logx "github.com/FinMentor-core-poc-v1/server/pkg/logger"
)

// RedisConversationStore keeps each conversation as one JSON blob under its
// own key with a sliding TTL. Last write wins, which matches the serialized
// per-id access pattern the flow requires.
type RedisConversationStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationStore(rdb redis.Cmdable, ttl time.Duration) *RedisConversationStore {
	return &RedisConversationStore{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationStore) conversationKey(id string) string {
	return fmt.Sprintf("advisor:conversation:%s", id)
}

func (r *RedisConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	key := r.conversationKey(id)

	b, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			// Absent record means a fresh, unstarted conversation.
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation from redis")
		return nil, errx.WrapRedis(err)
	}

	var conv model.Conversation
	if err := json.Unmarshal(b, &conv); err != nil {
		logx.Error().Err(err).Str("conversation_id", id).Msg("failed to unmarshal conversation")
		return nil, fmt.Errorf("unmarshal conversation %s: %w", id, err)
	}
	return &conv, nil
}

func (r *RedisConversationStore) Save(ctx context.Context, conv *model.Conversation) error {
	b, err := json.Marshal(conv)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conv.ID).Msg("failed to marshal conversation")
		return fmt.Errorf("marshal conversation: %w", err)
	}

	key := r.conversationKey(conv.ID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save conversation to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationStore) Delete(ctx context.Context, id string) error {
	key := r.conversationKey(id)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.ConversationStore = (*RedisConversationStore)(nil)
