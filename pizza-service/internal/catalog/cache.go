package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "catalog:"

type Cache interface {
	Extras(ctx context.Context) ([]Extra, error)
	SetExtras(ctx context.Context, extras []Extra) error
	PizzaPage(ctx context.Context, limit, offset int) (PizzaPage, error)
	SetPizzaPage(ctx context.Context, limit, offset int, page PizzaPage) error
	Invalidate(ctx context.Context) error
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
	jitter  time.Duration
}

// NewRedisCache stores entries for baseTTL plus up to a fifth of it in random jitter.
func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, baseTTL: baseTTL, jitter: baseTTL / 5}
}

func (c *RedisCache) Extras(ctx context.Context) ([]Extra, error) {
	var extras []Extra
	if err := c.get(ctx, extrasKey(), &extras); err != nil {
		return nil, err
	}
	return extras, nil
}

func (c *RedisCache) SetExtras(ctx context.Context, extras []Extra) error {
	return c.set(ctx, extrasKey(), extras)
}

func (c *RedisCache) PizzaPage(ctx context.Context, limit, offset int) (PizzaPage, error) {
	var page PizzaPage
	if err := c.get(ctx, pizzaPageKey(limit, offset), &page); err != nil {
		return PizzaPage{}, err
	}
	return page, nil
}

func (c *RedisCache) SetPizzaPage(ctx context.Context, limit, offset int, page PizzaPage) error {
	return c.set(ctx, pizzaPageKey(limit, offset), page)
}

// Invalidate drops every catalog key.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	ttl := c.baseTTL
	if c.jitter > 0 {
		ttl += rand.N(c.jitter)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func extrasKey() string {
	return keyPrefix + "extras"
}

func pizzaPageKey(limit, offset int) string {
	return fmt.Sprintf("%spizzas:%d:%d", keyPrefix, limit, offset)
}
