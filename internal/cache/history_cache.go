package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"lawrag/internal/model"
)

// HistoryCache keeps recent Q&A turns per session in Redis. History is
// pure prompt context, so losing it on expiry is harmless.
type HistoryCache struct {
	client   *redisv9.Client
	ttl      time.Duration
	maxTurns int
}

func NewHistoryCache(client *redisv9.Client, ttl time.Duration, maxTurns int) *HistoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &HistoryCache{
		client:   client,
		ttl:      ttl,
		maxTurns: maxTurns,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	raw, err := c.client.Get(ctx, c.historyKey(sessionID)).Result()
	if err == redisv9.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, nil
}

// AppendTurns adds messages to the session history, trimming to the
// most recent turns, and refreshes the TTL.
func (c *HistoryCache) AppendTurns(ctx context.Context, sessionID string, turns ...model.ChatMessage) error {
	history, err := c.GetHistory(ctx, sessionID)
	if err != nil {
		return err
	}
	history = append(history, turns...)
	if len(history) > c.maxTurns {
		history = history[len(history)-c.maxTurns:]
	}

	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(sessionID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(sessionID string) string {
	return fmt.Sprintf("qa:history:%s", sessionID)
}
