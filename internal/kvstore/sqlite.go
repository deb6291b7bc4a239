package kvstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/desertthunder/ytune/internal/shared"
)

// SQLiteBackend stores every namespace in the kv_entries table.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := shared.NewDatabase(ctx, path)
	if err != nil {
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

// NewSQLiteBackend wraps an already migrated database.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Bucket(name string) Store {
	return &sqliteStore{db: b.db, bucket: name}
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

type sqliteStore struct {
	db     *sql.DB
	bucket string
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv_entries WHERE bucket = ? AND key = ?", s.bucket, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", s.bucket, err)
	}
	return value, nil
}

func (s *sqliteStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_entries (bucket, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(bucket, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, query, s.bucket, key, value); err != nil {
		return storageErr("put", s.bucket, err)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE bucket = ? AND key = ?", s.bucket, key); err != nil {
		return storageErr("delete", s.bucket, err)
	}
	return nil
}

func (s *sqliteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv_entries WHERE bucket = ? ORDER BY key", s.bucket)
	if err != nil {
		return nil, storageErr("keys", s.bucket, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, storageErr("keys", s.bucket, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("keys", s.bucket, err)
	}
	return keys, nil
}

func (s *sqliteStore) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE bucket = ?", s.bucket); err != nil {
		return storageErr("purge", s.bucket, err)
	}
	return nil
}
