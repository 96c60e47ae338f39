package processor

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiogated/audiogated/internal/config"
	"github.com/audiogated/audiogated/internal/params"
)

// memCache is a minimal in-memory cache.Store for tests.
type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) Put(_ context.Context, key string, data []byte) {
	m.data[key] = data
}

// memLoader returns fixed bytes for any source URI and counts calls.
type memLoader struct {
	calls int32
	data  []byte
}

func (l *memLoader) Load(_ context.Context, _ string) ([]byte, error) {
	atomic.AddInt32(&l.calls, 1)
	return l.data, nil
}

// writeFakeTool writes an executable shell script that copies its input
// file (argument after "-i") to the output file (last argument), standing
// in for ffmpeg in tests that don't have the real binary available.
func writeFakeTool(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ffmpeg.sh")
	script := `#!/bin/sh
args="$@"
in=""
prev=""
out=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then
    in="$a"
  fi
  prev="$a"
  out="$a"
done
cp "$in" "$out"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func newTestProcessor(t *testing.T, loader *memLoader, cacheStore *memCache) *Processor {
	toolPath := writeFakeTool(t)
	cfg := config.Processor{
		ToolPath:       toolPath,
		Concurrency:    2,
		TimeoutSeconds: 5,
		KillGrace:      2 * time.Second,
	}
	return New(cfg, loader, nil, cacheStore)
}

func TestProcess_CacheMissThenHit(t *testing.T) {
	loader := &memLoader{data: []byte("source-bytes")}
	cacheStore := newMemCache()
	proc := newTestProcessor(t, loader, cacheStore)

	p, err := params.Parse(map[string][]string{"volume": {"1"}}, params.Options{})
	require.NoError(t, err)

	res1, err := proc.Process(context.Background(), "song.mp3", p)
	require.NoError(t, err)
	assert.Equal(t, "MISS", res1.CacheStatus)
	assert.Equal(t, []byte("source-bytes"), res1.Data)

	res2, err := proc.Process(context.Background(), "song.mp3", p)
	require.NoError(t, err)
	assert.Equal(t, "HIT", res2.CacheStatus)
	assert.Equal(t, res1.Data, res2.Data)

	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))
}

func TestProcess_ConcurrentIdenticalRequestsCoalesce(t *testing.T) {
	loader := &memLoader{data: []byte("source-bytes")}
	cacheStore := newMemCache()
	proc := newTestProcessor(t, loader, cacheStore)

	p, err := params.Parse(map[string][]string{"volume": {"2"}}, params.Options{})
	require.NoError(t, err)

	type outcome struct {
		status string
		err    error
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			res, err := proc.Process(context.Background(), "song2.mp3", p)
			results <- outcome{status: res.CacheStatus, err: err}
		}()
	}

	statuses := map[string]int{}
	for i := 0; i < 2; i++ {
		o := <-results
		require.NoError(t, o.err)
		statuses[o.status]++
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))
	assert.True(t, statuses["COALESCED"] >= 1 || statuses["HIT"] >= 1)
}

func TestProcess_DifferentParamsDifferentFingerprint(t *testing.T) {
	loader := &memLoader{data: []byte("abc")}
	cacheStore := newMemCache()
	proc := newTestProcessor(t, loader, cacheStore)

	p1, err := params.Parse(map[string][]string{"volume": {"1"}}, params.Options{})
	require.NoError(t, err)
	p2, err := params.Parse(map[string][]string{"volume": {"3"}}, params.Options{})
	require.NoError(t, err)

	res1, err := proc.Process(context.Background(), "song3.mp3", p1)
	require.NoError(t, err)
	res2, err := proc.Process(context.Background(), "song3.mp3", p2)
	require.NoError(t, err)

	assert.NotEqual(t, res1.Fingerprint, res2.Fingerprint)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loader.calls))
}

func TestProcess_CleansUpWorkDirOnSuccess(t *testing.T) {
	loader := &memLoader{data: []byte("abc")}
	cacheStore := newMemCache()
	proc := newTestProcessor(t, loader, cacheStore)

	before, err := os.ReadDir(os.TempDir())
	require.NoError(t, err)

	p, err := params.Parse(map[string][]string{}, params.Options{})
	require.NoError(t, err)
	_, err = proc.Process(context.Background(), "song4.mp3", p)
	require.NoError(t, err)

	after, err := os.ReadDir(os.TempDir())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(after), len(before)+1, "work dir must not leak across a successful run")
}
