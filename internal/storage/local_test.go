package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiogated/audiogated/internal/apierr"
	"github.com/audiogated/audiogated/internal/config"
)

func TestLocalBackend_LoadAndPut(t *testing.T) {
	dir := t.TempDir()
	backend, err := newLocalBackend(config.Storage{BaseDir: dir})
	require.NoError(t, err)

	require.NoError(t, backend.Put(context.Background(), "sub/out.mp3", []byte("data")))

	got, err := backend.Load(context.Background(), "sub/out.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestLocalBackend_LoadMissingIsNotFound(t *testing.T) {
	dir := t.TempDir()
	backend, err := newLocalBackend(config.Storage{BaseDir: dir})
	require.NoError(t, err)

	_, err = backend.Load(context.Background(), "missing.mp3")
	require.Error(t, err)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindNotFound, e.Kind)
}

func TestLocalBackend_RejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	backend, err := newLocalBackend(config.Storage{BaseDir: dir})
	require.NoError(t, err)

	_, err = backend.Load(context.Background(), "../../etc/passwd")
	require.Error(t, err)
}

func TestLocalBackend_RejectsSymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.mp3")
	require.NoError(t, os.WriteFile(secret, []byte("top-secret"), 0o644))
	require.NoError(t, os.Symlink(secret, filepath.Join(dir, "link.mp3")))

	backend, err := newLocalBackend(config.Storage{BaseDir: dir})
	require.NoError(t, err)

	_, err = backend.Load(context.Background(), "link.mp3")
	require.Error(t, err)
}

func TestLocalBackend_PutIsAtomic(t *testing.T) {
	dir := t.TempDir()
	backend, err := newLocalBackend(config.Storage{BaseDir: dir})
	require.NoError(t, err)

	require.NoError(t, backend.Put(context.Background(), "x.mp3", []byte("v1")))
	require.NoError(t, backend.Put(context.Background(), "x.mp3", []byte("v2")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
