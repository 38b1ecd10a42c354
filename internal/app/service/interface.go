package service

//go:generate mockgen -source=interface.go -destination=../../mocks/mock_service.go -package=mocks

import (
	"context"

	"github.com/atinyakov/kv-url-shortener/internal/models"
)

// Store is the key-value contract shared by the Redis, PostgreSQL and
// in-memory backends. Get returns storage.ErrNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	MGet(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	MSet(ctx context.Context, pairs map[string]string) error
	MSetNX(ctx context.Context, pairs map[string]string) (bool, error)
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Prober reports whether a URL is reachable.
type Prober interface {
	Probe(ctx context.Context, rawURL string) bool
}

// Readiness reports whether the store is connected.
type Readiness interface {
	Connected() bool
}

type URLServiceIface interface {
	Shorten(ctx context.Context, longURL string) (*models.ShortenResult, error)
	Resolve(ctx context.Context, shortID string) (string, error)
	ListAll(ctx context.Context) (map[string]string, error)
}
