package badger

import (
	"context"
	"io"
	"testing"

	"github.com/hupe1980/segindex/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, inMemory bool) *Store {
	t.Helper()
	opts := Options{InMemory: inMemory}
	if !inMemory {
		opts.Dir = t.TempDir()
	}
	s, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore(t *testing.T) {
	for _, inMemory := range []bool{true, false} {
		s := openTestStore(t, inMemory)
		ctx := context.Background()

		_, err := s.Open(ctx, "missing")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)

		require.NoError(t, s.Put(ctx, "files/b", []byte("beta")))
		require.NoError(t, s.Put(ctx, "files/a", []byte("alpha")))
		require.NoError(t, s.Put(ctx, "other", []byte("x")))

		w, err := s.Create(ctx, "files/c")
		require.NoError(t, err)
		_, err = w.Write([]byte("gam"))
		require.NoError(t, err)
		_, err = w.Write([]byte("ma"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		names, err := s.List(ctx, "files/")
		require.NoError(t, err)
		assert.Equal(t, []string{"files/a", "files/b", "files/c"}, names)

		data, err := blobstore.ReadAll(ctx, s, "files/c")
		require.NoError(t, err)
		assert.Equal(t, "gamma", string(data))

		b, err := s.Open(ctx, "files/a")
		require.NoError(t, err)
		rc, err := b.ReadRange(ctx, 1, 3)
		require.NoError(t, err)
		part, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "lph", string(part))

		require.NoError(t, s.Delete(ctx, "files/a"))
		require.NoError(t, s.Delete(ctx, "files/a"))
		ok, err := blobstore.Exists(ctx, s, "files/a")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestBadgerRequiresDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}
