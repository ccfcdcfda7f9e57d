package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	key := ImageKey("abc", ".png")
	assert.Equal(t, "images/abc.png", key)

	stored, err := store.Save(ctx, key, strings.NewReader("pixels"), 6, "image/png")
	require.NoError(t, err)
	assert.Equal(t, key, stored)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(body))

	entries, err := os.ReadDir(filepath.Join(root, ImagePrefix))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalStore_NormalizesKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	stored, err := store.Save(context.Background(), `/images\nested/../cat.jpg`, strings.NewReader("x"), 1, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "images/cat.jpg", stored)
}

func TestLocalStore_RejectsEscapes(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "..", "../etc/passwd", "images/../../secret", `..\windows`} {
		_, err := store.Save(ctx, key, strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, ErrInvalidPath, key)

		_, err = store.Exists(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidPath, key)
	}
}

func TestLocalStore_DirectoryIsNotAFile(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	exists, err := store.Exists(context.Background(), ImagePrefix)
	require.NoError(t, err)
	assert.False(t, exists)
}
