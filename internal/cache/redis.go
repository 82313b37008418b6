// Package cache keeps read-mostly catalog data in Redis. Every method is a
// no-op on a cache built without a client, so callers never branch on
// whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emilythestrangee/vitia/backend/internal/models"
)

const keyPrefix = "variedades:"

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return client, nil
}

// VarietyCache caches variety pages and single varieties.
type VarietyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewVarietyCache(client *redis.Client, ttl time.Duration) *VarietyCache {
	return &VarietyCache{client: client, ttl: ttl}
}

func (c *VarietyCache) enabled() bool {
	return c != nil && c.client != nil
}

func listKey(skip, limit int) string {
	return keyPrefix + "list:" + strconv.Itoa(skip) + ":" + strconv.Itoa(limit)
}

func itemKey(id int) string {
	return keyPrefix + "id:" + strconv.Itoa(id)
}

// GetList returns a cached page. A miss, a disabled cache and a Redis
// failure all report false.
func (c *VarietyCache) GetList(ctx context.Context, skip, limit int) ([]models.Variety, bool) {
	var list []models.Variety
	if !c.get(ctx, listKey(skip, limit), &list) {
		return nil, false
	}
	return list, true
}

func (c *VarietyCache) SetList(ctx context.Context, skip, limit int, list []models.Variety) error {
	return c.set(ctx, listKey(skip, limit), list)
}

func (c *VarietyCache) Get(ctx context.Context, id int) (*models.Variety, bool) {
	var v models.Variety
	if !c.get(ctx, itemKey(id), &v) {
		return nil, false
	}
	return &v, true
}

func (c *VarietyCache) Set(ctx context.Context, v *models.Variety) error {
	return c.set(ctx, itemKey(v.ID), v)
}

// Invalidate drops every cached variety entry.
func (c *VarietyCache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan variety keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete variety keys: %w", err)
	}
	return nil
}

func (c *VarietyCache) get(ctx context.Context, key string, dst any) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *VarietyCache) set(ctx context.Context, key string, value any) error {
	if !c.enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	return nil
}
