package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage is a process-local key-value store with the same semantics
// as RedisStore. Intended for development and tests.
type MemoryStorage struct {
	mu        sync.RWMutex
	data      map[string]string
	available bool
	closed    bool
}

func CreateMemoryStorage() (*MemoryStorage, error) {
	return &MemoryStorage{
		data:      make(map[string]string),
		available: true,
	}, nil
}

// SetAvailable toggles a simulated outage. While unavailable every call
// returns ErrUnavailable.
func (m *MemoryStorage) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
}

func (m *MemoryStorage) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed {
		return ErrClosed
	}
	if !m.available {
		return ErrUnavailable
	}
	return nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx); err != nil {
		return "", err
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStorage) MGet(ctx context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStorage) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return err
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) MSet(ctx context.Context, pairs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return err
	}
	for k, v := range pairs {
		m.data[k] = v
	}
	return nil
}

// MSetNX writes every pair only if none of the keys exist.
func (m *MemoryStorage) MSetNX(ctx context.Context, pairs map[string]string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return false, err
	}
	for k := range pairs {
		if _, exists := m.data[k]; exists {
			return false, nil
		}
	}
	for k, v := range pairs {
		m.data[k] = v
	}
	return true, nil
}

// Scan walks keys in lexical order. The cursor is an offset into the sorted
// key set; only trailing-wildcard patterns are supported.
func (m *MemoryStorage) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx); err != nil {
		return nil, 0, err
	}
	if count <= 0 {
		count = 10
	}

	prefix := MatchPrefix(match)
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := cursor
	if start >= uint64(len(keys)) {
		return []string{}, 0, nil
	}
	end := start + uint64(count)
	if end >= uint64(len(keys)) {
		return keys[start:], 0, nil
	}
	return keys[start:end], end, nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check(ctx)
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	return nil
}
