package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/audiogated/audiogated/internal/apierr"
	"github.com/audiogated/audiogated/internal/config"
)

// gcsBackend implements Store over Google Cloud Storage (spec §4.5),
// same contract as s3Backend.
type gcsBackend struct {
	client     *storage.Client
	bucket     string
	pathPrefix string
}

func newGCSBackend(cfg config.Storage) (*gcsBackend, error) {
	ctx := context.Background()
	var opts []option.ClientOption
	if cfg.GCS.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCS.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, err, "gcs client init failed")
	}

	return &gcsBackend{client: client, bucket: cfg.GCS.Bucket, pathPrefix: cfg.PathPrefix}, nil
}

func (g *gcsBackend) key(k string) string {
	return strings.TrimPrefix(g.pathPrefix+strings.TrimPrefix(k, "/"), "/")
}

func (g *gcsBackend) Load(ctx context.Context, sourceURI string) ([]byte, error) {
	obj := g.client.Bucket(g.bucket).Object(g.key(sourceURI))
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, apierr.New(apierr.KindNotFound, "object not found")
		}
		return nil, apierr.Wrap(apierr.KindUpstream, err, "gcs reader init failed")
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, err, "gcs body read failed")
	}
	return data, nil
}

// HealthCheck probes bucket reachability (spec §4.10 "/health").
func (g *gcsBackend) HealthCheck(ctx context.Context) error {
	if _, err := g.client.Bucket(g.bucket).Attrs(ctx); err != nil {
		return apierr.Wrap(apierr.KindUpstream, err, "gcs bucket unreachable")
	}
	return nil
}

func (g *gcsBackend) Put(ctx context.Context, key string, data []byte) error {
	obj := g.client.Bucket(g.bucket).Object(g.key(key))
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return apierr.Wrap(apierr.KindUpstream, err, "gcs write failed")
	}
	if err := w.Close(); err != nil {
		return apierr.Wrap(apierr.KindUpstream, err, "gcs close failed")
	}
	return nil
}
