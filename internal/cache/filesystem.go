package cache

import (
	"container/list"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/audiogated/audiogated/internal/config"
	"github.com/audiogated/audiogated/internal/log"
)

// diskEntry tracks a cached file's on-disk footprint for budget accounting.
type diskEntry struct {
	path       string
	size       int64
	lastAccess time.Time
}

// memEntry is an element stored in the in-memory hot-read LRU.
type memEntry struct {
	key  string
	data []byte
}

// FilesystemCache is the filesystem CacheStore backend (spec §4.6): one
// file per key under a sharded directory, enforcing simultaneous
// file-count/byte/memory budgets with LRU eviction and atomic writes.
type FilesystemCache struct {
	dir         string
	maxFiles    int64
	maxBytes    int64
	maxMemBytes int64

	mu         sync.Mutex
	disk       map[string]*diskEntry
	diskBytes  int64
	memList    *list.List
	memIndex   map[string]*list.Element
	memBytes   int64
}

// NewFilesystem constructs a FilesystemCache rooted at cfg.Dir, loading any
// pre-existing entries so budgets are honored across restarts.
func NewFilesystem(cfg config.FilesystemCacheConfig, budgets config.Processor) (*FilesystemCache, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	maxFiles := budgets.MaxCacheFiles
	if maxFiles <= 0 {
		maxFiles = 100000
	}
	maxBytes := budgets.MaxCacheSizeMB * (1 << 20)
	if maxBytes <= 0 {
		maxBytes = 10240 * (1 << 20)
	}
	maxMemBytes := budgets.MaxCacheMemMB * (1 << 20)
	if maxMemBytes <= 0 {
		maxMemBytes = 512 * (1 << 20)
	}

	fc := &FilesystemCache{
		dir:         dir,
		maxFiles:    maxFiles,
		maxBytes:    maxBytes,
		maxMemBytes: maxMemBytes,
		disk:        map[string]*diskEntry{},
		memList:     list.New(),
		memIndex:    map[string]*list.Element{},
	}
	fc.loadExisting()
	return fc, nil
}

func (c *FilesystemCache) shardPath(key string) string {
	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(c.dir, shard, key)
}

func (c *FilesystemCache) loadExisting() {
	_ = filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".tmp" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		key := filepath.Base(path)
		c.disk[key] = &diskEntry{path: path, size: info.Size(), lastAccess: info.ModTime()}
		c.diskBytes += info.Size()
		return nil
	})
}

// Get implements Store. A backend error or miss is reported as (nil, false).
func (c *FilesystemCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	if elem, ok := c.memIndex[key]; ok {
		c.memList.MoveToFront(elem)
		data := elem.Value.(*memEntry).data
		c.mu.Unlock()
		return data, true
	}
	entry, ok := c.disk[key]
	var path string
	if ok {
		path = entry.path
	}
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithComponent("cache.filesystem").Warn().Err(err).Str("key", key).Msg("read failed, treating as miss")
		return nil, false
	}

	c.mu.Lock()
	if e, ok := c.disk[key]; ok {
		e.lastAccess = time.Now()
	}
	c.promoteToMemLRU(key, data)
	c.mu.Unlock()

	return data, true
}

// Put implements Store: best-effort, atomic write-to-temp + rename.
func (c *FilesystemCache) Put(_ context.Context, key string, data []byte) {
	path := c.shardPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.WithComponent("cache.filesystem").Warn().Err(err).Msg("put: mkdir failed")
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.WithComponent("cache.filesystem").Warn().Err(err).Msg("put: write failed")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		log.WithComponent("cache.filesystem").Warn().Err(err).Msg("put: rename failed")
		_ = os.Remove(tmp)
		return
	}

	c.mu.Lock()
	if old, ok := c.disk[key]; ok {
		c.diskBytes -= old.size
	}
	c.disk[key] = &diskEntry{path: path, size: int64(len(data)), lastAccess: time.Now()}
	c.diskBytes += int64(len(data))
	c.promoteToMemLRU(key, data)
	c.evictUntilWithinBudgets()
	c.mu.Unlock()
}

// promoteToMemLRU must be called with c.mu held.
func (c *FilesystemCache) promoteToMemLRU(key string, data []byte) {
	if elem, ok := c.memIndex[key]; ok {
		c.memBytes -= int64(len(elem.Value.(*memEntry).data))
		elem.Value = &memEntry{key: key, data: data}
		c.memList.MoveToFront(elem)
	} else {
		elem := c.memList.PushFront(&memEntry{key: key, data: data})
		c.memIndex[key] = elem
	}
	c.memBytes += int64(len(data))

	for c.memBytes > c.maxMemBytes && c.memList.Len() > 0 {
		back := c.memList.Back()
		me := back.Value.(*memEntry)
		c.memBytes -= int64(len(me.data))
		c.memList.Remove(back)
		delete(c.memIndex, me.key)
	}
}

// evictUntilWithinBudgets must be called with c.mu held. Ties in access
// time break on lexicographic key order for determinism (spec §9 Open
// Question iii).
func (c *FilesystemCache) evictUntilWithinBudgets() {
	for int64(len(c.disk)) > c.maxFiles || c.diskBytes > c.maxBytes {
		keys := make([]string, 0, len(c.disk))
		for k := range c.disk {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			ei, ej := c.disk[keys[i]], c.disk[keys[j]]
			if ei.lastAccess.Equal(ej.lastAccess) {
				return keys[i] < keys[j]
			}
			return ei.lastAccess.Before(ej.lastAccess)
		})
		if len(keys) == 0 {
			return
		}
		victim := keys[0]
		entry := c.disk[victim]
		if err := os.Remove(entry.path); err != nil && !os.IsNotExist(err) {
			log.WithComponent("cache.filesystem").Warn().Err(err).Str("key", victim).Msg("eviction remove failed")
		}
		c.diskBytes -= entry.size
		delete(c.disk, victim)
		if elem, ok := c.memIndex[victim]; ok {
			c.memBytes -= int64(len(elem.Value.(*memEntry).data))
			c.memList.Remove(elem)
			delete(c.memIndex, victim)
		}
	}
}
