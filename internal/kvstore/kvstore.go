// package kvstore provides the namespaced, persistent key-value storage every
// other ytune component is built on.
//
// A [Backend] hands out one [Store] per namespace ("bucket"). Values are opaque
// byte slices. Three backends are available: an in-memory map, a bbolt file and a
// SQLite file. Any of them can be wrapped with [WithCapacity] to emulate a
// per-origin storage ceiling.
package kvstore

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytune/internal/shared"
)

// Namespaces used by ytune components.
const (
	BucketContent   = "content"
	BucketPlaylists = "playlists"
	BucketSearch    = "search"
	BucketQuota     = "quota"
)

// Store is a single namespace of string keys mapped to byte values.
type Store interface {
	// Get returns a copy of the value for key, or [shared.ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)
	// Put inserts or replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every key in the namespace in ascending order.
	Keys(ctx context.Context) ([]string, error)
	// Purge removes every key in the namespace in one operation.
	Purge(ctx context.Context) error
}

// Backend owns the underlying storage and hands out namespaces.
type Backend interface {
	Bucket(name string) Store
	Close() error
}

// Open creates the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg shared.StorageConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)

	switch cfg.Driver {
	case "memory":
		b = NewMemoryBackend()
	case "bolt":
		b, err = OpenBolt(cfg.Path)
	case "sqlite":
		b, err = OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxBytes > 0 {
		b = &limitedBackend{Backend: b, maxBytes: cfg.MaxBytes}
	}
	return b, nil
}

func storageErr(op, bucket string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", shared.ErrStorage, op, bucket, err)
}
