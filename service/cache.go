package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/legalclear/backend/config"
	"github.com/legalclear/backend/model"
	"github.com/redis/go-redis/v9"
)

// ChatCache keeps recent chat threads in Redis so history reads during an
// active conversation skip the database. The store remains the source of
// truth; cache entries expire after the configured TTL.
type ChatCache struct {
	cli *redis.Client
	ttl time.Duration
}

// NewChatCache connects to Redis and verifies the connection.
func NewChatCache(cfg *config.RedisConfig) (*ChatCache, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &ChatCache{
		cli: cli,
		ttl: time.Duration(cfg.HistoryTTLMinutes) * time.Minute,
	}, nil
}

func threadKey(documentID, sessionID string) string {
	return "chat:" + documentID + ":" + sessionID
}

// GetHistory returns the cached thread. The second return is false when the
// thread is not cached.
func (c *ChatCache) GetHistory(ctx context.Context, documentID, sessionID string) ([]*model.ChatMessage, bool) {
	raw, err := c.cli.LRange(ctx, threadKey(documentID, sessionID), 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	msgs := make([]*model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// Corrupt entry; drop the whole thread and fall back to the store.
			c.cli.Del(ctx, threadKey(documentID, sessionID))
			return nil, false
		}
		msgs = append(msgs, &msg)
	}

	return msgs, true
}

// SetHistory replaces the cached thread with the given messages.
func (c *ChatCache) SetHistory(ctx context.Context, documentID, sessionID string, msgs []*model.ChatMessage) {
	key := threadKey(documentID, sessionID)

	pipe := c.cli.TxPipeline()
	pipe.Del(ctx, key)
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.Expire(ctx, key, c.ttl)
	_, _ = pipe.Exec(ctx)
}

// Append pushes a message onto an already-cached thread. Threads not in the
// cache are left alone so a partial thread is never served.
func (c *ChatCache) Append(ctx context.Context, documentID, sessionID string, msg *model.ChatMessage) error {
	key := threadKey(documentID, sessionID)

	exists, err := c.cli.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pipe := c.cli.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate drops every cached thread for a document, used on delete.
func (c *ChatCache) Invalidate(ctx context.Context, documentID string) {
	iter := c.cli.Scan(ctx, 0, "chat:"+documentID+":*", 100).Iterator()
	for iter.Next(ctx) {
		c.cli.Del(ctx, iter.Val())
	}
}

// Close releases the Redis connection.
func (c *ChatCache) Close() error {
	return c.cli.Close()
}
