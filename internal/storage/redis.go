package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds connection parameters for RedisStore.
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// RedisStore is the Redis implementation of the key-value store.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore creates the client without dialing. Connections are opened
// lazily by the first command, so the caller never blocks here.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
	return NewRedisStoreFromClient(client, logger)
}

func NewRedisStoreFromClient(client *redis.Client, logger *zap.Logger) *RedisStore {
	client.AddHook(dialLogHook{logger: logger})
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// MGet returns only the keys that exist.
func (s *RedisStore) MGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) MSet(ctx context.Context, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}
	if err := s.client.MSet(ctx, flatten(pairs)...).Err(); err != nil {
		return fmt.Errorf("redis mset: %w", err)
	}
	return nil
}

// MSetNX writes all pairs in one atomic command, or none of them if any
// key already exists.
func (s *RedisStore) MSetNX(ctx context.Context, pairs map[string]string) (bool, error) {
	if len(pairs) == 0 {
		return true, nil
	}
	ok, err := s.client.MSetNX(ctx, flatten(pairs)...).Result()
	if err != nil {
		return false, fmt.Errorf("redis msetnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := s.client.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis scan: %w", err)
	}
	return keys, next, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func flatten(pairs map[string]string) []any {
	out := make([]any, 0, len(pairs)*2)
	for k, v := range pairs {
		out = append(out, k, v)
	}
	return out
}

// dialLogHook logs connection attempts made by the client pool.
type dialLogHook struct {
	logger *zap.Logger
}

func (h dialLogHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		h.logger.Debug("store connecting", zap.String("addr", addr))
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Warn("store dial failed", zap.String("addr", addr), zap.Error(err))
		}
		return conn, err
	}
}

func (h dialLogHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h dialLogHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
