package projectlink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "projectlink:"

// RedisStore keeps link records in Redis so mappings survive restarts and
// are shared across instances. A non-zero TTL bounds the growth the
// in-process store cannot.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis. ttl of zero keeps records forever.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, key string, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal link record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save link record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup link record: %w", err)
	}
	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return Record{}, false, fmt.Errorf("unmarshal link record: %w", err)
	}
	return record, true, nil
}

func (s *RedisStore) List(ctx context.Context) (map[string]Record, error) {
	out := make(map[string]Record)
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		data, err := s.client.Get(ctx, full).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read link record %s: %w", full, err)
		}
		var record Record
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("unmarshal link record %s: %w", full, err)
		}
		out[full[len(keyPrefix):]] = record
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan link records: %w", err)
	}
	return out, nil
}

// Ping checks Redis reachability.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
