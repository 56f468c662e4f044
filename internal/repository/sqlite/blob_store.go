package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// BlobStore implements repository.BlobStore and repository.KeyLister for SQLite.
type BlobStore struct {
	db *DB
}

// NewBlobStore creates a new SQLite blob store.
func NewBlobStore(db *DB) *BlobStore {
	return &BlobStore{db: db}
}

// Get retrieves the blob stored under key.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	var value []byte
	err := s.db.Conn().QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or replaces the blob under key.
func (s *BlobStore) Set(ctx context.Context, key string, value []byte) error {
	s.db.Lock()
	defer s.db.Unlock()

	if value == nil {
		value = []byte{}
	}

	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set blob %s: %w", key, err)
	}
	return nil
}

// Keys returns every key starting with prefix, sorted.
func (s *BlobStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT key FROM blobs WHERE key LIKE ? ESCAPE '\' ORDER BY key`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
