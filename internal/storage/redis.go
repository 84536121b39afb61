package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces preference hashes
const DefaultRedisPrefix = "prefs:"

// RedisStore implements Store with one Redis hash per client
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(clientID string) string {
	return s.prefix + clientID
}

// GetItem reads one field of the client's hash
func (s *RedisStore) GetItem(ctx context.Context, clientID, key string) (string, bool, error) {
	if clientID == "" || key == "" {
		return "", false, ErrInvalidKey
	}
	v, err := s.client.HGet(ctx, s.key(clientID), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get preference: %w", err)
	}
	return v, true, nil
}

// SetItem writes one field of the client's hash
func (s *RedisStore) SetItem(ctx context.Context, clientID, key, value string) error {
	if clientID == "" || key == "" {
		return ErrInvalidKey
	}
	if err := s.client.HSet(ctx, s.key(clientID), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}
	return nil
}

// GetAll returns the client's whole hash
func (s *RedisStore) GetAll(ctx context.Context, clientID string) (map[string]string, error) {
	if clientID == "" {
		return nil, ErrInvalidKey
	}
	m, err := s.client.HGetAll(ctx, s.key(clientID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return m, nil
}

// Purge removes every client hash under the store prefix
func (s *RedisStore) Purge(ctx context.Context) (int, error) {
	pattern := s.prefix + "*"
	var cursor uint64
	var deleted int

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("failed to delete some keys", "error", err)
			} else {
				deleted += len(keys)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// Ping verifies Redis connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
