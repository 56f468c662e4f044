package repository

import (
	"context"
	"fmt"
)

// ListableStore is a blob store that can enumerate its keys.
type ListableStore interface {
	BlobStore
	KeyLister
}

// CopyBlobs copies every key under prefix from src to dst and returns how
// many were copied. Existing keys in dst are overwritten.
func CopyBlobs(ctx context.Context, src ListableStore, dst BlobStore, prefix string) (int, error) {
	keys, err := src.Keys(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list keys: %w", err)
	}

	copied := 0
	for _, key := range keys {
		value, ok, err := src.Get(ctx, key)
		if err != nil {
			return copied, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if err := dst.Set(ctx, key, value); err != nil {
			return copied, fmt.Errorf("failed to write %s: %w", key, err)
		}
		copied++
	}
	return copied, nil
}
