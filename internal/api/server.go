// Package api implements the HTTP surface (spec §4.10): the process and
// preview routes, health, and the static schema/format discovery
// endpoints added by SPEC_FULL's domain expansion. Grounded on
// xg2g/internal/api's chi-based server_routes.go/middleware.go.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/audiogated/audiogated/internal/cache"
	"github.com/audiogated/audiogated/internal/config"
	"github.com/audiogated/audiogated/internal/log"
	"github.com/audiogated/audiogated/internal/params"
	"github.com/audiogated/audiogated/internal/processor"
	"github.com/audiogated/audiogated/internal/storage"
)

// HealthChecker is implemented by backends that can report liveness
// (spec §6.1 "/health"). The Redis cache and the storage backends satisfy
// it; a backend that does not (such as the filesystem cache) is reported
// as ok.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server holds the wired dependencies for the HTTP surface.
type Server struct {
	cfg         config.Application
	paramOpts   params.Options
	proc        *processor.Processor
	cacheStore  cache.Store
	loader      storage.Loader
	resultStore storage.Putter
	router      chi.Router
}

// New wires the chi router and returns a Server ready to be used as an
// http.Handler. loader and resultStore are probed by /health alongside
// cacheStore (spec §4.10); resultStore may be nil when write-through
// result persistence is disabled.
func New(cfg config.Application, paramOpts params.Options, proc *processor.Processor, cacheStore cache.Store, loader storage.Loader, resultStore storage.Putter) *Server {
	s := &Server{cfg: cfg, paramOpts: paramOpts, proc: proc, cacheStore: cacheStore, loader: loader, resultStore: resultStore}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(log.Middleware())

	r.Get("/health", s.handleHealth)
	r.Get("/formats", s.handleFormats)
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/api-schema", s.handleOpenAPI)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/params/*", s.handlePreview)
	r.Get("/*", s.handleProcess)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
