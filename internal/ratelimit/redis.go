package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims a sorted set of hit timestamps (ms), counts what is left and
// adds the new hit when under the limit. It returns {allowed, count, oldest_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	count = count + 1
	allowed = 1
end

local oldest = 0
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
	oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

// RedisStore shares limits between every API process through Redis sorted sets.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Hit(ctx context.Context, key string, rule Rule, now time.Time) (Usage, error) {
	// members must be unique or hits in the same millisecond would collapse
	member := uuid.NewString()

	vals, err := slidingWindow.Run(ctx, s.client, []string{key},
		now.UnixMilli(), rule.Window.Milliseconds(), rule.Limit, member).Int64Slice()
	if err != nil {
		return Usage{}, fmt.Errorf("redis sliding window: %w", err)
	}
	if len(vals) != 3 {
		return Usage{}, fmt.Errorf("redis sliding window: unexpected reply %v", vals)
	}

	u := Usage{Allowed: vals[0] == 1, Count: int(vals[1])}
	if vals[2] > 0 {
		u.Oldest = time.UnixMilli(vals[2])
	}
	return u, nil
}
