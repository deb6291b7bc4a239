package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/ytune/internal/shared"
	bolt "go.etcd.io/bbolt"
)

// BoltBackend stores each namespace as a top-level bbolt bucket.
type BoltBackend struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*BoltBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketContent, BucketPlaylists, BucketSearch, BucketQuota} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Bucket(name string) Store {
	return &boltStore{db: b.db, name: []byte(name)}
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}

type boltStore struct {
	db   *bolt.DB
	name []byte
}

func (s *boltStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.name)
		if b == nil {
			return shared.ErrNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return shared.ErrNotFound
		}
		// bbolt values are only valid for the life of the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	if errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, storageErr("get", string(s.name), err)
	}
	return out, nil
}

func (s *boltStore) Put(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.name)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return storageErr("put", string(s.name), err)
	}
	return nil
}

func (s *boltStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.name)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return storageErr("delete", string(s.name), err)
	}
	return nil
}

func (s *boltStore) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.name)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("keys", string(s.name), err)
	}
	return keys, nil
}

// Purge drops and recreates the bucket inside one transaction.
func (s *boltStore) Purge(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(s.name) != nil {
			if err := tx.DeleteBucket(s.name); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(s.name)
		return err
	})
	if err != nil {
		return storageErr("purge", string(s.name), err)
	}
	return nil
}
