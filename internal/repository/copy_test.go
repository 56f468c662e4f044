package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petlens/internal/repository"
	"petlens/internal/repository/sqlite"
)

func openStore(t *testing.T, name string) *sqlite.BlobStore {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.NewBlobStore(db)
}

func TestCopyBlobs(t *testing.T) {
	ctx := context.Background()
	src := openStore(t, "src.db")
	dst := openStore(t, "dst.db")

	require.NoError(t, src.Set(ctx, "posts", []byte(`[]`)))
	require.NoError(t, src.Set(ctx, "user:alice", []byte(`{"username":"alice"}`)))
	require.NoError(t, src.Set(ctx, "user:bob", []byte(`{"username":"bob"}`)))
	require.NoError(t, dst.Set(ctx, "user:alice", []byte(`stale`)))

	n, err := repository.CopyBlobs(ctx, src, dst, "user:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	value, ok, err := dst.Get(ctx, "user:alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"username":"alice"}`, string(value))

	_, ok, err = dst.Get(ctx, "posts")
	require.NoError(t, err)
	assert.False(t, ok, "outside prefix")

	n, err = repository.CopyBlobs(ctx, src, dst, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
