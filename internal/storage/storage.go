// Package storage implements the polymorphic SourceLoader and ResultStore
// capability boundaries (spec §4.5, §4.9) over local filesystem, HTTP(S),
// S3-compatible, and GCS backends.
package storage

import (
	"context"

	"github.com/audiogated/audiogated/internal/config"
)

// Loader fetches source audio bytes by URI (spec §4.5).
type Loader interface {
	Load(ctx context.Context, sourceURI string) ([]byte, error)
}

// Putter persists result bytes under a key (spec §4.9). Errors from Put
// are the caller's responsibility to log-and-swallow; Putter itself
// returns them so ResultStore can do so.
type Putter interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Store combines both capabilities; not every backend need implement Put
// (e.g. a read-only HTTP loader).
type Store interface {
	Loader
	Putter
}

// NewLoader selects a Loader for cfg.Storage.Backend, augmented with an
// HTTP(S) loader that activates whenever a source URI carries an
// http(s):// scheme, regardless of the configured primary backend (spec
// §4.5 treats remote URLs as always resolvable).
func NewLoader(cfg config.Storage) (Loader, error) {
	primary, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &dispatchLoader{
		primary: primary,
		http:    newHTTPLoader(cfg),
	}, nil
}

// NewResultStore selects a Store for an optional write-through result
// persistence backend (spec §4.9).
func NewResultStore(cfg config.Storage) (Store, error) {
	return newBackend(cfg)
}

func newBackend(cfg config.Storage) (Store, error) {
	switch cfg.Backend {
	case "local", "":
		return newLocalBackend(cfg)
	case "s3":
		return newS3Backend(cfg)
	case "gcs":
		return newGCSBackend(cfg)
	default:
		return nil, errUnknownBackend(cfg.Backend)
	}
}

type errUnknownBackend string

func (e errUnknownBackend) Error() string { return "storage: unknown backend " + string(e) }

// dispatchLoader routes http(s):// URIs to the HTTP loader and everything
// else to the configured primary backend.
type dispatchLoader struct {
	primary Loader
	http    Loader
}

func (d *dispatchLoader) Load(ctx context.Context, sourceURI string) ([]byte, error) {
	if isRemoteURL(sourceURI) {
		return d.http.Load(ctx, sourceURI)
	}
	return d.primary.Load(ctx, sourceURI)
}

// healthChecker mirrors internal/api.HealthChecker structurally so this
// package need not import api (which would create an import cycle).
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck probes the configured primary backend (spec §4.10
// "/health"). The HTTP(S) loader is stateless per-request and has
// nothing persistent to probe, so it is not checked here.
func (d *dispatchLoader) HealthCheck(ctx context.Context) error {
	if hc, ok := d.primary.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func isRemoteURL(uri string) bool {
	return hasPrefixFold(uri, "http://") || hasPrefixFold(uri, "https://")
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
