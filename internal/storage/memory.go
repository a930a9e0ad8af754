package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is the default in-process backend: an RWMutex-guarded map
// with lazy TTL expiry on access.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*Value
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]*Value)}
}

func (m *Memory) Get(ctx context.Context, key string) (*Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	if v.expired(time.Now().Unix()) {
		delete(m.items, key)
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *Memory) Set(ctx context.Context, key string, value *Value, ttl int64) error {
	cp := *value
	cp.ExpiresAt = deadline(ttl)

	m.mu.Lock()
	m.items[key] = &cp
	m.mu.Unlock()
	return nil
}

// Delete succeeds whether or not the key exists.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

func (m *Memory) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *Memory) TTL(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.items[key]
	if !ok {
		return 0, ErrNotFound
	}
	now := time.Now().Unix()
	if v.expired(now) {
		delete(m.items, key)
		return 0, ErrNotFound
	}
	return v.remaining(now), nil
}

func (m *Memory) UpdateTTL(ctx context.Context, key string, ttl int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.items[key]
	if !ok {
		return ErrNotFound
	}
	v.ExpiresAt = deadline(ttl)
	return nil
}

func (m *Memory) Increment(ctx context.Context, key string, delta int64, def *int64) (int64, error) {
	return m.add(key, delta, def)
}

func (m *Memory) Decrement(ctx context.Context, key string, delta int64, def *int64) (int64, error) {
	return m.add(key, -delta, def)
}

func (m *Memory) add(key string, delta int64, def *int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := counterOrDefault(m.items[key], def)
	n, err := bump(v, delta)
	if err != nil {
		return 0, err
	}
	m.items[key] = v
	return n, nil
}

func (m *Memory) Close() error {
	return nil
}
