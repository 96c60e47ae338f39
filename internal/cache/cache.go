// Package cache implements the CacheStore capability boundary (spec §4.6):
// best-effort get/put of fingerprint-keyed byte artifacts, backed by either
// a budgeted filesystem store or Redis. Correctness of the pipeline never
// depends on the cache (spec §9 "Cache correctness vs. cache performance").
package cache

import (
	"context"

	"github.com/audiogated/audiogated/internal/config"
)

// Store is the CacheStore capability. Both operations are best-effort: a
// Get miss (including a backend error) simply returns (nil, false); a Put
// failure is logged by the implementation and never surfaces to callers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, data []byte)
}

// New selects a Store implementation for cfg.Cache.Backend. Filesystem
// budgets live under processor.* per spec §6.2's configuration table.
func New(cacheCfg config.Cache, budgets config.Processor) (Store, error) {
	switch cacheCfg.Backend {
	case "redis":
		return NewRedis(cacheCfg.Redis)
	case "filesystem", "":
		return NewFilesystem(cacheCfg.Filesystem, budgets)
	default:
		return nil, errUnknownBackend(cacheCfg.Backend)
	}
}

type errUnknownBackend string

func (e errUnknownBackend) Error() string { return "cache: unknown backend " + string(e) }
