package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "cart:"
	defaultTTL    = 15 * time.Minute
	defaultJitter = 5 * time.Minute

	// entryVersion changes whenever the stored layout of a cart does.
	// Entries of another version read as misses.
	entryVersion = 1
)

type Options struct {
	// Prefix namespaces the keys. Empty means "cart:".
	Prefix string
	// TTL is the base lifetime of an entry. Zero means 15m.
	TTL time.Duration
	// Jitter bounds the random extra lifetime added to TTL, so entries
	// written together expire apart. Zero means 5m, negative disables it.
	Jitter time.Duration
}

// entry is the value stored under a cart key.
type entry struct {
	Version int          `json:"v"`
	Cart    *domain.Cart `json:"cart"`
}

// RedisCache is a read-through copy of repository carts keyed by user.
type RedisCache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	jitter time.Duration
}

func NewRedisCache(rdb redis.Cmdable, opts Options) *RedisCache {
	c := &RedisCache{
		rdb:    rdb,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		jitter: opts.Jitter,
	}
	if c.prefix == "" {
		c.prefix = defaultPrefix
	}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	switch {
	case c.jitter == 0:
		c.jitter = defaultJitter
	case c.jitter < 0:
		c.jitter = 0
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	raw, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get cart of %s: %w", userID, err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cached cart: %w", err)
	}
	if e.Version != entryVersion || e.Cart == nil || e.Cart.UserID != userID {
		return nil, ErrCacheMiss
	}
	return e.Cart, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	raw, err := json.Marshal(entry{Version: entryVersion, Cart: cart})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(userID), raw, c.expiry()).Err(); err != nil {
		return fmt.Errorf("redis set cart of %s: %w", userID, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart of %s: %w", userID, err)
	}
	return nil
}

func (c *RedisCache) key(userID string) string {
	return c.prefix + userID
}

func (c *RedisCache) expiry() time.Duration {
	if c.jitter <= 0 {
		return c.ttl
	}
	return c.ttl + rand.N(c.jitter)
}
