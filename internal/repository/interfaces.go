package repository

import (
	"context"

	"petlens/internal/model"
)

// BlobStore is a key-value store of opaque byte blobs.
type BlobStore interface {
	// Get returns the value under key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// KeyLister is implemented by blob stores that can enumerate their keys.
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// DetectionRepository defines the interface for detection history operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetStats(limit int) (*model.DetectionStats, error)

	// Delete operations
	DeleteAll() error
}
