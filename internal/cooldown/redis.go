package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// DefaultRedisPrefix namespaces cooldown keys in a shared Redis.
const DefaultRedisPrefix = "streamdb:cooldown:"

// recordFailureScript stores ARGV[1] (unix millis) only if it is newer than
// the current value.
var recordFailureScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if (not current) or (tonumber(current) < tonumber(ARGV[1])) then
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// RedisStore shares retry states between processes.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// DialRedisStore connects to the Redis at url and verifies it answers.
func DialRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStore(rdb, prefix), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) key(key string) string {
	return s.prefix + strings.TrimSpace(key)
}

// LastFailure implements streamdb.CooldownStore.
func (s *RedisStore) LastFailure(ctx context.Context, key string) (time.Time, bool, error) {
	ms, err := s.rdb.Get(ctx, s.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cooldown %q: %w", key, err)
	}
	return time.UnixMilli(ms), true, nil
}

// RecordFailure implements streamdb.CooldownStore.
func (s *RedisStore) RecordFailure(ctx context.Context, key string, at time.Time) error {
	if err := recordFailureScript.Run(ctx, s.rdb, []string{s.key(key)}, at.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("record cooldown %q: %w", key, err)
	}
	return nil
}

var _ streamdb.CooldownStore = (*RedisStore)(nil)
