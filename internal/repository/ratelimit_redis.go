package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/signup-activation/internal/model"
)

// fixedWindowScript runs the admission check atomically inside Redis.  The
// key expires when its window ends, so a missing key is a fresh window and
// no cleanup pass is needed.  The script still compares window_start itself
// in case the expiry has not fired yet.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local ceiling = tonumber(ARGV[2])
local window_ms = tonumber(ARGV[3])

local state = redis.call('HMGET', key, 'count', 'window_start_ms')
local count = tonumber(state[1])
local start = tonumber(state[2])

if count == nil or start == nil or (now_ms - start) >= window_ms then
  redis.call('HSET', key, 'count', 1, 'window_start_ms', now_ms)
  redis.call('PEXPIRE', key, window_ms)
  return {1, 1, now_ms}
end

if count < ceiling then
  count = redis.call('HINCRBY', key, 'count', 1)
  return {1, count, start}
end

return {0, count, start}
`)

// RedisRateLimitStore keeps fixed-window counters in Redis hashes keyed by
// prefix:endpoint:source.
type RedisRateLimitStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimitStore(client redis.UniversalClient, prefix string) *RedisRateLimitStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimitStore{client: client, prefix: prefix}
}

func (s *RedisRateLimitStore) key(source, endpoint string) string {
	return s.prefix + ":" + endpoint + ":" + source
}

// Hit counts one request for the key and reports whether it was admitted.
func (s *RedisRateLimitStore) Hit(ctx context.Context, source, endpoint string, policy model.RateLimitPolicy, now time.Time) (model.RateLimitCounter, bool, error) {
	policy = policy.Normalize()
	raw, err := fixedWindowScript.Run(ctx, s.client,
		[]string{s.key(source, endpoint)},
		now.UnixMilli(), policy.Ceiling, policy.Window.Milliseconds(),
	).Result()
	if err != nil {
		return model.RateLimitCounter{}, false, fmt.Errorf("rate limit script: %w", err)
	}
	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 3 {
		return model.RateLimitCounter{}, false, fmt.Errorf("unexpected rate limit script result %#v", raw)
	}
	allowed, err := asInt64(vals[0])
	if err != nil {
		return model.RateLimitCounter{}, false, err
	}
	count, err := asInt64(vals[1])
	if err != nil {
		return model.RateLimitCounter{}, false, err
	}
	startMS, err := asInt64(vals[2])
	if err != nil {
		return model.RateLimitCounter{}, false, err
	}
	return model.RateLimitCounter{
		SourceAddress: source,
		Endpoint:      endpoint,
		RequestCount:  int(count),
		WindowStart:   time.UnixMilli(startMS).UTC(),
	}, allowed == 1, nil
}

// PurgeStale is a no-op: Redis expires counters at the end of their window.
func (s *RedisRateLimitStore) PurgeStale(context.Context, time.Time) (int64, error) { return 0, nil }

func asInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, fmt.Errorf("unexpected redis value type %T", v)
}
