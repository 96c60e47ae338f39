package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiogated/audiogated/internal/config"
)

func newTestFilesystemCache(t *testing.T, budgets config.Processor) *FilesystemCache {
	t.Helper()
	fc, err := NewFilesystem(config.FilesystemCacheConfig{Dir: t.TempDir()}, budgets)
	require.NoError(t, err)
	return fc
}

func TestFilesystemCache_PutGetRoundTrip(t *testing.T) {
	fc := newTestFilesystemCache(t, config.Processor{})

	fc.Put(context.Background(), "key1", []byte("hello"))
	data, ok := fc.Get(context.Background(), "key1")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), data)
}

func TestFilesystemCache_MissReturnsFalse(t *testing.T) {
	fc := newTestFilesystemCache(t, config.Processor{})
	_, ok := fc.Get(context.Background(), "nonexistent")
	assert.False(t, ok)
}

func TestFilesystemCache_EnforcesFileCountBudget(t *testing.T) {
	fc := newTestFilesystemCache(t, config.Processor{MaxCacheFiles: 2, MaxCacheSizeMB: 10240, MaxCacheMemMB: 512})

	fc.Put(context.Background(), "a", []byte("1"))
	fc.Put(context.Background(), "b", []byte("2"))
	fc.Put(context.Background(), "c", []byte("3"))

	count := 0
	for _, key := range []string{"a", "b", "c"} {
		if _, ok := fc.Get(context.Background(), key); ok {
			count++
		}
	}
	assert.LessOrEqual(t, count, 2)

	_, ok := fc.Get(context.Background(), "c")
	assert.True(t, ok, "most recently written entry should survive eviction")
}

func TestFilesystemCache_RebuildsIndexOnRestart(t *testing.T) {
	dir := t.TempDir()
	fc1, err := NewFilesystem(config.FilesystemCacheConfig{Dir: dir}, config.Processor{})
	require.NoError(t, err)
	fc1.Put(context.Background(), "persisted", []byte("value"))

	fc2, err := NewFilesystem(config.FilesystemCacheConfig{Dir: dir}, config.Processor{})
	require.NoError(t, err)
	data, ok := fc2.Get(context.Background(), "persisted")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), data)
}
