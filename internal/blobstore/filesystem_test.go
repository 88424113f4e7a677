package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "2025100007_Form138_2025.pdf", strings.NewReader("first")))

	exists, err := store.Exists(ctx, "2025100007_Form138_2025.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := store.Open(ctx, "2025100007_Form138_2025.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "first", string(data))
}

func TestFilesystemWriteReplaces(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "key.pdf", strings.NewReader("old")))
	require.NoError(t, store.Write(ctx, "key.pdf", strings.NewReader("new")))

	r, err := store.Open(ctx, "key.pdf")
	require.NoError(t, err)
	defer r.Close()
	data, _ := io.ReadAll(r)
	assert.Equal(t, "new", string(data))
}

func TestFilesystemDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "key.pdf", strings.NewReader("data")))
	require.NoError(t, store.Delete(ctx, "key.pdf"))

	err = store.Delete(ctx, "key.pdf")
	assert.True(t, errors.Is(err, ErrNotExist))

	_, err = store.Open(ctx, "key.pdf")
	assert.True(t, errors.Is(err, ErrNotExist))
}

func TestFilesystemRejectsPathKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFilesystem(root)
	require.NoError(t, err)

	assert.Error(t, store.Write(ctx, "../escape.pdf", strings.NewReader("x")))
	assert.Error(t, store.Write(ctx, "a/b.pdf", strings.NewReader("x")))
	assert.Error(t, store.Write(ctx, "", strings.NewReader("x")))
}

func TestFilesystemLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFilesystem(root)
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "a.pdf", strings.NewReader("x")))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "stray temp file %s", filepath.Join(root, e.Name()))
	}
}
