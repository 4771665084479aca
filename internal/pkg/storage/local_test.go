package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := store.Upload(ctx, bytes.NewBufferString("No\tName\n"), -1, "biometric/2024-03-01/a.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "biometric/2024-03-01/a.txt", key)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "No\tName\n", string(data))

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")

	_, err = store.Download(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_KeysStayInsideBase(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := store.Upload(ctx, bytes.NewBufferString("x"), 1, "../../escape.txt", "text/plain")
	require.NoError(t, err)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	full, err := store.resolve(key)
	require.NoError(t, err)
	assert.Contains(t, full, store.basePath)
}
