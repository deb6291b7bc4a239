package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/ytune/internal/shared"
)

// WithCapacity limits the total size (keys plus values) held by s to maxBytes.
//
// A Put that would exceed the limit fails with [shared.ErrCapacityExceeded] and
// leaves the store unchanged. Replacing a key only counts the size difference.
func WithCapacity(s Store, maxBytes int64) Store {
	return &capacityStore{Store: s, maxBytes: maxBytes}
}

type capacityStore struct {
	Store
	maxBytes int64
}

func (c *capacityStore) Put(ctx context.Context, key string, value []byte) error {
	used, err := Usage(ctx, c.Store)
	if err != nil {
		return err
	}

	if old, err := c.Store.Get(ctx, key); err == nil {
		used -= int64(len(key) + len(old))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if need := used + int64(len(key)+len(value)); need > c.maxBytes {
		return fmt.Errorf("%w: need %d of %d bytes", shared.ErrCapacityExceeded, need, c.maxBytes)
	}
	return c.Store.Put(ctx, key, value)
}

// Usage sums the size of every key and value in s.
func Usage(ctx context.Context, s Store) (int64, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, k := range keys {
		v, err := s.Get(ctx, k)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		total += int64(len(k) + len(v))
	}
	return total, nil
}

type limitedBackend struct {
	Backend
	maxBytes int64
}

func (l *limitedBackend) Bucket(name string) Store {
	return WithCapacity(l.Backend.Bucket(name), l.maxBytes)
}
