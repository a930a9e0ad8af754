package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis stores the same JSON-encoded record an embedded backend would,
// with expiry handled by the same lazy TTL rules rather than redis
// key expiration, so behavior is identical across backends.
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (s *Redis) Get(ctx context.Context, key string) (*Value, error) {
	v, err := s.fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if v.expired(time.Now().Unix()) {
		s.client.Del(ctx, key)
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *Redis) Set(ctx context.Context, key string, value *Value, ttl int64) error {
	cp := *value
	cp.ExpiresAt = deadline(ttl)
	return s.put(ctx, key, &cp)
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return fmt.Errorf("scan keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}
	return keys, nil
}

func (s *Redis) TTL(ctx context.Context, key string) (int64, error) {
	v, err := s.fetch(ctx, key)
	if err != nil {
		return 0, err
	}
	now := time.Now().Unix()
	if v.expired(now) {
		s.client.Del(ctx, key)
		return 0, ErrNotFound
	}
	return v.remaining(now), nil
}

func (s *Redis) UpdateTTL(ctx context.Context, key string, ttl int64) error {
	v, err := s.fetch(ctx, key)
	if err != nil {
		return err
	}
	v.ExpiresAt = deadline(ttl)
	return s.put(ctx, key, v)
}

func (s *Redis) Increment(ctx context.Context, key string, delta int64, def *int64) (int64, error) {
	return s.add(ctx, key, delta, def)
}

func (s *Redis) Decrement(ctx context.Context, key string, delta int64, def *int64) (int64, error) {
	return s.add(ctx, key, -delta, def)
}

// add is a read-modify-write; it is not atomic across clients, which
// matches the single-server deployment the serve command runs.
func (s *Redis) add(ctx context.Context, key string, delta int64, def *int64) (int64, error) {
	existing, err := s.fetch(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	v := counterOrDefault(existing, def)
	n, err := bump(v, delta)
	if err != nil {
		return 0, err
	}
	if err := s.put(ctx, key, v); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}

func (s *Redis) fetch(ctx context.Context, key string) (*Value, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &v, nil
}

func (s *Redis) put(ctx context.Context, key string, v *Value) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.client.Set(ctx, key, data, 0).Err()
}
