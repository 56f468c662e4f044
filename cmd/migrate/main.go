package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"petlens/internal/repository"
	"petlens/internal/repository/redis"
	"petlens/internal/repository/sqlite"
)

// openStore opens "sqlite:<path>", "redis:<host:port>" or a redis:// URL.
func openStore(ctx context.Context, location, redisPrefix string) (repository.ListableStore, io.Closer, error) {
	switch {
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		store, err := redis.NewFromURL(ctx, location, redisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case strings.HasPrefix(location, "redis:"):
		store, err := redis.New(ctx, redis.Config{
			Address:   strings.TrimPrefix(location, "redis:"),
			KeyPrefix: redisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case strings.HasPrefix(location, "sqlite:"):
		db, err := sqlite.New(strings.TrimPrefix(location, "sqlite:"))
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewBlobStore(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q, want sqlite:<path> or redis:<addr>", location)
	}
}

func main() {
	from := flag.String("from", "sqlite:data/petlens.db", "Source store")
	to := flag.String("to", "redis:localhost:6379", "Destination store")
	prefix := flag.String("prefix", "", "Copy only keys with this prefix")
	redisPrefix := flag.String("redis-prefix", "petlens:", "Key namespace used on redis stores")
	flag.Parse()

	ctx := context.Background()

	fmt.Printf("Migrating blobs from %s to %s\n", *from, *to)

	src, srcCloser, err := openStore(ctx, *from, *redisPrefix)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer srcCloser.Close()

	dst, dstCloser, err := openStore(ctx, *to, *redisPrefix)
	if err != nil {
		log.Fatalf("Failed to open destination: %v", err)
	}
	defer dstCloser.Close()

	copied, err := repository.CopyBlobs(ctx, src, dst, *prefix)
	if err != nil {
		log.Fatalf("Migration stopped after %d keys: %v", copied, err)
	}

	fmt.Printf("✅ Successfully migrated %d keys\n", copied)
}
