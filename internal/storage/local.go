package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/audiogated/audiogated/internal/apierr"
	"github.com/audiogated/audiogated/internal/config"
)

// localBackend implements Store over a rooted local directory (spec §4.5).
type localBackend struct {
	baseDir    string
	pathPrefix string
}

func newLocalBackend(cfg config.Storage) (*localBackend, error) {
	base, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	return &localBackend{baseDir: base, pathPrefix: cfg.PathPrefix}, nil
}

// resolve maps a source URI / object key onto a path confined to baseDir,
// canonicalizing symlinks so that escapes via a symlinked component are
// also rejected (spec §4.5).
func (l *localBackend) resolve(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	joined := filepath.Join(l.baseDir, l.pathPrefix, key)

	cleanBase := filepath.Clean(l.baseDir)
	if !strings.HasPrefix(joined, cleanBase+string(filepath.Separator)) && joined != cleanBase {
		return "", apierr.New(apierr.KindBadRequest, "path escapes storage base")
	}

	// Canonicalize through symlinks when the target (or its parent dir,
	// for not-yet-existing outputs) exists, so a symlinked component
	// can't be used to escape baseDir.
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			parent, perr := filepath.EvalSymlinks(filepath.Dir(joined))
			if perr != nil {
				return joined, nil
			}
			parentBase, berr := filepath.EvalSymlinks(l.baseDir)
			if berr != nil {
				return joined, nil
			}
			if !strings.HasPrefix(parent, parentBase+string(filepath.Separator)) && parent != parentBase {
				return "", apierr.New(apierr.KindBadRequest, "path escapes storage base")
			}
			return joined, nil
		}
		return "", err
	}
	resolvedBase, err := filepath.EvalSymlinks(l.baseDir)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(resolved, resolvedBase+string(filepath.Separator)) && resolved != resolvedBase {
		return "", apierr.New(apierr.KindBadRequest, "path escapes storage base")
	}
	return resolved, nil
}

func (l *localBackend) Load(_ context.Context, sourceURI string) ([]byte, error) {
	path, err := l.resolve(sourceURI)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apierr.New(apierr.KindNotFound, "source not found")
		}
		return nil, apierr.Wrap(apierr.KindUpstream, err, "local read failed")
	}
	return data, nil
}

// HealthCheck reports whether the backing directory is still reachable
// (spec §4.10 "/health").
func (l *localBackend) HealthCheck(_ context.Context) error {
	info, err := os.Stat(l.baseDir)
	if err != nil {
		return apierr.Wrap(apierr.KindUpstream, err, "local storage base dir unreachable")
	}
	if !info.IsDir() {
		return apierr.New(apierr.KindUpstream, "local storage base is not a directory")
	}
	return nil
}

func (l *localBackend) Put(_ context.Context, key string, data []byte) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apierr.Wrap(apierr.KindUpstream, err, "local mkdir failed")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apierr.Wrap(apierr.KindUpstream, err, "local write failed")
	}
	if err := os.Rename(tmp, path); err != nil {
		return apierr.Wrap(apierr.KindUpstream, err, "local rename failed")
	}
	return nil
}
