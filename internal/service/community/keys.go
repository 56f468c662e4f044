package community

import (
	"context"
	"encoding/json"
	"fmt"

	"petlens/internal/logger"
	"petlens/internal/repository"
)

// Blob store keys. Users and pets are namespaced so no username can collide
// with the post list.
const (
	PostsKey   = "posts"
	UserPrefix = "user:"
	PetPrefix  = "pet:"
)

func userKey(username string) string { return UserPrefix + username }

func petKey(username string) string { return PetPrefix + username }

// loadJSON decodes the blob under key into v. A missing or corrupt blob
// leaves v untouched and reports found=false; only store errors are returned.
func loadJSON(ctx context.Context, store repository.BlobStore, log *logger.Logger, key string, v interface{}) (bool, error) {
	data, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warning("Discarding unreadable blob %s: %v", key, err)
		return false, nil
	}
	return true, nil
}

func saveJSON(ctx context.Context, store repository.BlobStore, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return store.Set(ctx, key, data)
}
