package kvdoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisStore maps the Store port onto plain Redis strings. Keys are
// enumerated with SCAN, so listing never blocks the server the way KEYS does.
type RedisStore struct {
	rdb       redis.UniversalClient
	ownClient bool
	scanCount int64
}

var _ Store = (*RedisStore)(nil)

const defaultRedisScanCount = 500

// NewRedisStore wraps an existing client. Closing the store does not close
// the client.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, scanCount: defaultRedisScanCount}
}

// OpenRedisStore connects to a redis:// URL and pings the server.
func OpenRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kvdoc: invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("kvdoc: redis %s: %w", opt.Addr, err)
	}
	return &RedisStore{rdb: rdb, ownClient: true, scanCount: defaultRedisScanCount}, nil
}

func (s *RedisStore) Client() redis.UniversalClient {
	return s.rdb
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	seen := make(map[string]struct{})
	iter := s.rdb.Scan(ctx, 0, pattern, s.scanCount).Iterator()
	for iter.Next(ctx) {
		// SCAN may return the same key more than once
		k := iter.Val()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	if s.ownClient {
		return s.rdb.Close()
	}
	return nil
}
