package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/shortstrade/feedcore/internal/config"
	"github.com/shortstrade/feedcore/internal/model"
)

// RedisStore keeps session snapshots in Redis with TTL expiry, so stale
// sessions age out without a cleanup job.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func historyKey(session string) string { return "feedcore:history:" + session }
func seenKey(session string) string    { return "feedcore:seen:" + session }

func (s *RedisStore) SaveHistory(ctx context.Context, session string, entries map[string]model.CachedSeries) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal history snapshot: %w", err)
	}
	if err := s.client.Set(ctx, historyKey(session), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save history snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadHistory(ctx context.Context, session string) (map[string]model.CachedSeries, error) {
	data, err := s.client.Get(ctx, historyKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history snapshot: %w", err)
	}

	var entries map[string]model.CachedSeries
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal history snapshot: %w", err)
	}
	return entries, nil
}

func (s *RedisStore) SaveSeenKeys(ctx context.Context, session string, keys []string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("marshal seen keys: %w", err)
	}
	if err := s.client.Set(ctx, seenKey(session), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save seen keys: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadSeenKeys(ctx context.Context, session string) ([]string, error) {
	data, err := s.client.Get(ctx, seenKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load seen keys: %w", err)
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("unmarshal seen keys: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
