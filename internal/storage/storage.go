package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrNotFound  = errors.New("key not found")
	ErrWrongType = errors.New("value is not an integer")
)

type ValueType string

const (
	TypeString  ValueType = "string"
	TypeInteger ValueType = "integer"
)

// Value is the stored record. ExpiresAt is a unix timestamp in
// seconds; -1 means the key never expires. Integer values are kept as
// their decimal string bytes so increments survive re-encoding.
type Value struct {
	Type      ValueType `json:"type"`
	ExpiresAt int64     `json:"expires_at"`
	Data      []byte    `json:"data"`
}

func StringValue(s string) *Value {
	return &Value{Type: TypeString, ExpiresAt: -1, Data: []byte(s)}
}

func IntValue(n int64) *Value {
	return &Value{Type: TypeInteger, ExpiresAt: -1, Data: []byte(strconv.FormatInt(n, 10))}
}

// Store is the pluggable backend behind the key-value server. TTL
// expiry is lazy: expired entries are dropped when an operation
// touches them, never by a background sweeper.
type Store interface {
	Get(ctx context.Context, key string) (*Value, error)
	Set(ctx context.Context, key string, value *Value, ttl int64) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	TTL(ctx context.Context, key string) (int64, error)
	UpdateTTL(ctx context.Context, key string, ttl int64) error
	Increment(ctx context.Context, key string, delta int64, def *int64) (int64, error)
	Decrement(ctx context.Context, key string, delta int64, def *int64) (int64, error)
	Close() error
}

// deadline converts a relative ttl in seconds to an absolute expiry
// timestamp. Negative ttls mean the key never expires.
func deadline(ttl int64) int64 {
	if ttl < 0 {
		return -1
	}
	return time.Now().Unix() + ttl
}

func (v *Value) expired(now int64) bool {
	return v.ExpiresAt >= 0 && v.ExpiresAt <= now
}

// remaining returns seconds until expiry, or -1 for keys that never
// expire. Callers handle already-expired values before asking.
func (v *Value) remaining(now int64) int64 {
	if v.ExpiresAt < 0 {
		return -1
	}
	return v.ExpiresAt - now
}

// bump applies a signed delta to an integer value in place and returns
// the new number.
func bump(v *Value, delta int64) (int64, error) {
	if v.Type != TypeInteger {
		return 0, ErrWrongType
	}
	cur, err := strconv.ParseInt(string(v.Data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored integer: %w", err)
	}
	n := cur + delta
	v.Data = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// counterOrDefault returns the existing value for a counter key, or a
// fresh integer record seeded with def (0 when nil).
func counterOrDefault(existing *Value, def *int64) *Value {
	if existing != nil {
		return existing
	}
	seed := int64(0)
	if def != nil {
		seed = *def
	}
	return IntValue(seed)
}
