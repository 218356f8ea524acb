package util

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wellpath/medtrack/config"
)

// Dashboard fanout cache. The upcoming-dispensations view classifies every
// active patient/medication pair, which is the most expensive read in the
// system; a short TTL keeps dashboards cheap without hiding overdue
// transitions for long. All operations are best-effort: with no Redis
// client, or on any Redis error, callers just recompute.

// CacheGetJSON loads a cached value into dest. Returns false on miss,
// missing client, or decode failure.
func CacheGetJSON(ctx context.Context, key string, dest interface{}) bool {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return false
	}
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// CacheSetJSON stores a value with the given TTL, best-effort.
func CacheSetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = rdb.Set(ctx, key, raw, ttl).Err()
}

// CacheInvalidate drops a cached key, best-effort.
func CacheInvalidate(ctx context.Context, key string) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	_ = rdb.Del(ctx, key).Err()
}
