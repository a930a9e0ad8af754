package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketKeys = "keys"

// Bolt is the embedded persistent backend. Records are JSON-encoded
// Values in a single bucket.
type Bolt struct {
	db *bbolt.DB
}

func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketKeys))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Get runs in a write transaction so an expired record can be dropped
// on the way out.
func (s *Bolt) Get(ctx context.Context, key string) (*Value, error) {
	var out *Value
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketKeys))
		v, err := decodeRecord(b.Get([]byte(key)))
		if err != nil {
			return err
		}
		if v.expired(time.Now().Unix()) {
			return b.Delete([]byte(key))
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *Bolt) Set(ctx context.Context, key string, value *Value, ttl int64) error {
	cp := *value
	cp.ExpiresAt = deadline(ttl)

	return s.db.Update(func(tx *bbolt.Tx) error {
		return putRecord(tx.Bucket([]byte(bucketKeys)), key, &cp)
	})
}

func (s *Bolt) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketKeys)).Delete([]byte(key))
	})
}

func (s *Bolt) DeletePrefix(ctx context.Context, prefix string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketKeys))
		c := b.Cursor()

		var doomed [][]byte
		for k, _ := c.Seek([]byte(prefix)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, _ = c.Next() {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Bolt) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketKeys)).Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Bolt) TTL(ctx context.Context, key string) (int64, error) {
	var ttl int64
	found := false

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketKeys))
		v, err := decodeRecord(b.Get([]byte(key)))
		if err != nil {
			return err
		}
		now := time.Now().Unix()
		if v.expired(now) {
			return b.Delete([]byte(key))
		}
		ttl = v.remaining(now)
		found = true
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotFound
	}
	return ttl, nil
}

func (s *Bolt) UpdateTTL(ctx context.Context, key string, ttl int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketKeys))
		v, err := decodeRecord(b.Get([]byte(key)))
		if err != nil {
			return err
		}
		v.ExpiresAt = deadline(ttl)
		return putRecord(b, key, v)
	})
}

func (s *Bolt) Increment(ctx context.Context, key string, delta int64, def *int64) (int64, error) {
	return s.add(key, delta, def)
}

func (s *Bolt) Decrement(ctx context.Context, key string, delta int64, def *int64) (int64, error) {
	return s.add(key, -delta, def)
}

func (s *Bolt) add(key string, delta int64, def *int64) (int64, error) {
	var n int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketKeys))

		var existing *Value
		if raw := b.Get([]byte(key)); raw != nil {
			v, err := decodeRecord(raw)
			if err != nil {
				return err
			}
			existing = v
		}

		v := counterOrDefault(existing, def)
		var err error
		n, err = bump(v, delta)
		if err != nil {
			return err
		}
		return putRecord(b, key, v)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

// decodeRecord returns ErrNotFound for a nil slot so callers can treat
// missing and present uniformly inside a transaction.
func decodeRecord(raw []byte) (*Value, error) {
	if raw == nil {
		return nil, ErrNotFound
	}
	var v Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &v, nil
}

func putRecord(b *bbolt.Bucket, key string, v *Value) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return b.Put([]byte(key), data)
}
