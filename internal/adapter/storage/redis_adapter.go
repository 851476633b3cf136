package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sequenceKeyPrefix    = "seq:"
	idempotencyKeyPrefix = "idempotency:"
	// Sequence keys carry the year, so they only need to outlive it.
	sequenceKeyTTL    = 400 * 24 * time.Hour
	idempotencyKeyTTL = 24 * time.Hour
)

var nextSequenceScript = redis.NewScript(`
local key = KEYS[1]
local ttl = tonumber(ARGV[1])

local value = redis.call('INCR', key)
if value == 1 then
	redis.call('EXPIRE', key, ttl)
end

return value
`)

var seedSequenceScript = redis.NewScript(`
local key = KEYS[1]
local value = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call('GET', key) or '0')
if current < value then
	redis.call('SET', key, value, 'EX', ttl)
	return value
end

return current
`)

// RedisAdapter issues task and count numbers from Redis counters and guards
// request idempotency keys.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) NextSequence(ctx context.Context, key string) (int64, error) {
	n, err := nextSequenceScript.Run(ctx, r.client, []string{sequenceKeyPrefix + key}, int64(sequenceKeyTTL/time.Second)).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis sequence %s: %w", key, err)
	}
	return n, nil
}

// SeedSequence raises a counter to at least value, e.g. after restoring
// from the MySQL task_sequences table. A higher counter is left alone.
func (r *RedisAdapter) SeedSequence(ctx context.Context, key string, value int64) error {
	err := seedSequenceScript.Run(ctx, r.client, []string{sequenceKeyPrefix + key}, value, int64(sequenceKeyTTL/time.Second)).Err()
	if err != nil {
		return fmt.Errorf("redis seed sequence %s: %w", key, err)
	}
	return nil
}

// Claim reports whether key was seen for the first time within the TTL.
func (r *RedisAdapter) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
