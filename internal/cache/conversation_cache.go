package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when nothing is cached for the id.
var ErrMiss = errors.New("cache miss")

type ConversationCache struct {
	R   *redis.Client
	TTL time.Duration
}

func key(id string) string { return "dmsync:conversation:" + id }

func (c *ConversationCache) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	b, err := c.R.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var conv domain.Conversation
	if err := json.Unmarshal(b, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *ConversationCache) Set(ctx context.Context, conv *domain.Conversation) error {
	b, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return c.R.Set(ctx, key(conv.ID), b, ttl).Err()
}

func (c *ConversationCache) Delete(ctx context.Context, id string) error {
	return c.R.Del(ctx, key(id)).Err()
}

func (c *ConversationCache) Ping(ctx context.Context) error {
	return c.R.Ping(ctx).Err()
}
