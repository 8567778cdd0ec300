// Package cartstore persists session carts in Redis.
package cartstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/himanshuaggarwal31/luvora/internal/domain/cart"
)

var _ cart.Store = (*RedisStore)(nil)

// RedisStore implements cart.Store, serializing the cart to JSON under a
// per-session key with a sliding TTL. Abandoned carts expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A non-positive ttl defaults to 7 days.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return "cart:session:" + sessionID
}

// Get loads the session's cart, returning an empty cart when none exists.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*cart.Cart, error) {
	data, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	if c.Lines == nil {
		c.Lines = make(map[string]cart.Line)
	}
	return &c, nil
}

// Save writes the cart and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := s.client.Set(ctx, key(sessionID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}

// Delete removes the session's cart.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}
