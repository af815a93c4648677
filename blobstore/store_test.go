package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "centres-a", []byte("alpha")))

	w, err := store.Create(ctx, "centres-b")
	require.NoError(t, err)
	_, err = w.Write([]byte("bra"))
	require.NoError(t, err)
	_, err = w.Write([]byte("vo"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	data, err := ReadAll(ctx, store, "centres-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), data)

	data, err = ReadAll(ctx, store, "centres-b")
	require.NoError(t, err)
	assert.Equal(t, []byte("bravo"), data)

	b, err := store.Open(ctx, "centres-b")
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.Size())
	part := make([]byte, 2)
	n, err := b.ReadAt(ctx, part, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("vo"), part)
	require.NoError(t, b.Close())

	names, err := store.List(ctx, "centres-")
	require.NoError(t, err)
	assert.Equal(t, []string{"centres-a", "centres-b"}, names)

	require.NoError(t, store.Delete(ctx, "centres-a"))
	require.NoError(t, store.Delete(ctx, "centres-a"), "deleting a missing blob is not an error")
	_, err = store.Open(ctx, "centres-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("original")
	require.NoError(t, store.Put(ctx, "blob", data))
	data[0] = 'X'

	got, err := ReadAll(ctx, store, "blob")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}
