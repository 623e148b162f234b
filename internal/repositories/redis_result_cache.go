package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/emilykay2/tbuie/config"
	"github.com/emilykay2/tbuie/internal/db"
)

const (
	// Redis key prefix for cached snapshots
	cacheKeyPrefix = "tbuie:cache:"
)

// RedisResultCache implements ResultCache using Redis
type RedisResultCache struct {
	client *db.RedisClient
	ttl    time.Duration
}

// NewRedisResultCache creates a Redis-based result cache. A zero ttl keeps
// snapshots until evicted.
func NewRedisResultCache(client *db.RedisClient, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisResultCache) Name() string { return config.CacheRedis }

func redisCacheKeys(key config.CacheKey) (meta, q string) {
	base := cacheKeyPrefix + key.Digest()
	return base + ":meta", base + ":q"
}

// Load reads the snapshot stored under key
func (c *RedisResultCache) Load(ctx context.Context, key config.CacheKey) (*Snapshot, error) {
	metaKey, qKey := redisCacheKeys(key)

	meta, err := c.client.GetBytes(ctx, metaKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, NewCacheError("load_snapshot", key, err, "")
	}

	q, err := c.client.GetBytes(ctx, qKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, NewCacheError("load_snapshot", key, err, "")
	}

	snap, err := decodeSnapshot(key, meta, q)
	if err != nil {
		return nil, NewCacheError("decode_snapshot", key, err, "")
	}
	return snap, nil
}

// Save stores both parts of the snapshot in one transaction
func (c *RedisResultCache) Save(ctx context.Context, key config.CacheKey, snap *Snapshot) error {
	meta, q, err := encodeSnapshot(snap)
	if err != nil {
		return NewCacheError("encode_snapshot", key, err, "")
	}

	metaKey, qKey := redisCacheKeys(key)
	if err := c.client.SetMany(ctx, map[string][]byte{metaKey: meta, qKey: q}, c.ttl); err != nil {
		return NewCacheError("save_snapshot", key, err, "")
	}
	return nil
}

// Delete removes the snapshot stored under key
func (c *RedisResultCache) Delete(ctx context.Context, key config.CacheKey) error {
	metaKey, qKey := redisCacheKeys(key)
	if err := c.client.Del(ctx, metaKey, qKey); err != nil {
		return NewCacheError("delete_snapshot", key, err, "")
	}
	return nil
}
