// Package processor implements the Processor capability (spec §4.8): given
// a source URI and validated parameters, it fingerprints them and produces the
// transformed audio bytes, coalescing identical in-flight requests and
// enforcing a bounded-concurrency, timeout-guarded external tool
// invocation. Grounded on xg2g/internal/infra/ffmpeg's builder/runner
// split, generalized from a fixed HLS ladder to the spec's open filter
// graph.
package processor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/audiogated/audiogated/internal/apierr"
	"github.com/audiogated/audiogated/internal/cache"
	"github.com/audiogated/audiogated/internal/config"
	"github.com/audiogated/audiogated/internal/fingerprint"
	"github.com/audiogated/audiogated/internal/log"
	"github.com/audiogated/audiogated/internal/metrics"
	"github.com/audiogated/audiogated/internal/params"
	"github.com/audiogated/audiogated/internal/singleflight"
	"github.com/audiogated/audiogated/internal/storage"
)

// Result is what Process returns to the HTTP surface (spec §4.10).
type Result struct {
	Data        []byte
	MimeType    string
	Fingerprint fingerprint.Fingerprint
	CacheStatus string // "HIT" | "MISS" | "COALESCED"
}

// Processor composes fingerprint, cache, single-flight coalescing,
// source loading, and external-tool execution into one pipeline.
type Processor struct {
	cfg         config.Processor
	loader      storage.Loader
	resultStore storage.Putter // nil if disabled (spec §4.9)
	cacheStore  cache.Store
	group       *singleflight.Group
	sem         *semaphore.Weighted
}

// New constructs a Processor. resultStore may be nil when write-through
// result persistence is disabled.
func New(cfg config.Processor, loader storage.Loader, resultStore storage.Putter, cacheStore cache.Store) *Processor {
	concurrency := int64(cfg.Concurrency)
	if concurrency <= 0 {
		concurrency = int64(runtime.NumCPU())
	}
	return &Processor{
		cfg:         cfg,
		loader:      loader,
		resultStore: resultStore,
		cacheStore:  cacheStore,
		group:       singleflight.NewGroup(),
		sem:         semaphore.NewWeighted(concurrency),
	}
}

// Process runs the full pipeline for one (sourceURI, params) request (spec
// §4.1 end-to-end flow): fingerprint → cache lookup → single-flight →
// load → transform → cache/result-store write-through.
func (p *Processor) Process(ctx context.Context, sourceURI string, pr params.AudioProcessingParams) (Result, error) {
	fp := fingerprint.Compute(sourceURI, pr)
	key := fp.String()

	if data, ok := p.cacheStore.Get(ctx, key); ok {
		metrics.CacheResults.WithLabelValues(cacheBackendLabel(p.cacheStore), "hit").Inc()
		return Result{Data: data, MimeType: MimeType(pr), Fingerprint: fp, CacheStatus: "HIT"}, nil
	}
	metrics.CacheResults.WithLabelValues(cacheBackendLabel(p.cacheStore), "miss").Inc()

	outcome, err := p.group.Do(ctx, key, func() (any, error) {
		return p.compute(context.WithoutCancel(ctx), sourceURI, pr, fp)
	})
	if err != nil {
		return Result{}, err
	}
	if outcome.Err != nil {
		return Result{}, outcome.Err
	}

	data := outcome.Value.([]byte)
	status := "MISS"
	if outcome.Coalesced {
		status = "COALESCED"
		metrics.Coalesced.Inc()
	}
	return Result{Data: data, MimeType: MimeType(pr), Fingerprint: fp, CacheStatus: status}, nil
}

// compute is the actual single-flight body: load source bytes, run the
// external tool, and write through to cache and the optional result
// store. It runs to completion even if the original request's context is
// canceled (spec §4.7, §9): callers pass a context.WithoutCancel-derived
// ctx so that a departing waiter never aborts work other waiters still
// need.
func (p *Processor) compute(ctx context.Context, sourceURI string, pr params.AudioProcessingParams, fp fingerprint.Fingerprint) (any, error) {
	sourceBytes, err := p.loader.Load(ctx, sourceURI)
	if err != nil {
		metrics.LoaderErrors.WithLabelValues("load").Inc()
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "audiogated-"+fp.String()+"-")
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, err, "allocate work directory")
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.WithComponent("processor").Warn().Err(rmErr).Str("dir", workDir).Msg("work dir cleanup failed")
		}
	}()

	inputPath := filepath.Join(workDir, "input"+filepath.Ext(sourceURI))
	if err := os.WriteFile(inputPath, sourceBytes, 0o600); err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, err, "write input file")
	}

	outputPath := filepath.Join(workDir, "output."+outputFormat(pr))
	args := BuildArgs(inputPath, outputPath, pr)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, apierr.Wrap(apierr.KindTimeout, err, "acquire processing slot")
	}
	defer p.sem.Release(1)

	toolPath := p.cfg.ToolPath
	if toolPath == "" {
		toolPath = "ffmpeg"
	}
	timeout := time.Duration(p.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	killGrace := p.cfg.KillGrace
	if killGrace <= 0 {
		killGrace = 5 * time.Second
	}

	start := time.Now()
	runErr := runTool(ctx, toolPath, args, timeout, killGrace)
	metrics.ToolDuration.Observe(time.Since(start).Seconds())

	if runErr != nil {
		if e, ok := apierr.As(runErr); ok && e.Kind == apierr.KindTimeout {
			metrics.ToolExitCodes.WithLabelValues("timeout").Inc()
		} else {
			metrics.ToolExitCodes.WithLabelValues("failed").Inc()
		}
		metrics.ProcessorInvocations.WithLabelValues("error").Inc()
		return nil, runErr
	}
	metrics.ToolExitCodes.WithLabelValues("success").Inc()

	outBytes, err := os.ReadFile(outputPath)
	if err != nil {
		metrics.ProcessorInvocations.WithLabelValues("error").Inc()
		return nil, apierr.Wrap(apierr.KindInternal, err, "read tool output")
	}

	if max := p.cfg.MaxOutputSizeBytes; max > 0 && int64(len(outBytes)) > max {
		metrics.ProcessorInvocations.WithLabelValues("error").Inc()
		return nil, apierr.Newf(apierr.KindPayloadTooLarge, "output exceeds max_output_size_bytes (%d > %d)", len(outBytes), max)
	}

	p.cacheStore.Put(ctx, fp.String(), outBytes)
	if p.resultStore != nil {
		if err := p.resultStore.Put(ctx, fp.String(), outBytes); err != nil {
			log.WithComponent("processor").Warn().Err(err).Str("fingerprint", fp.String()).Msg("result store put failed")
		}
	}

	metrics.ProcessorInvocations.WithLabelValues("success").Inc()
	return outBytes, nil
}

// Shutdown marks the coalescing group as shutting down. It does not
// interrupt or wait for computations that are already running.
func (p *Processor) Shutdown() {
	p.group.Shutdown()
}

func cacheBackendLabel(s cache.Store) string {
	switch s.(type) {
	case *cache.RedisCache:
		return "redis"
	case *cache.FilesystemCache:
		return "filesystem"
	default:
		return "unknown"
	}
}
