package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiogated/audiogated/internal/api"
	"github.com/audiogated/audiogated/internal/cache"
	"github.com/audiogated/audiogated/internal/config"
	xglog "github.com/audiogated/audiogated/internal/log"
	"github.com/audiogated/audiogated/internal/params"
	"github.com/audiogated/audiogated/internal/processor"
	"github.com/audiogated/audiogated/internal/storage"
)

var version = "dev"

// exit codes (spec §6.1): 0 normal shutdown, 1 unrecoverable startup error.
const (
	exitOK        = 0
	exitStartupErr = 1
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(exitOK)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "audiogated"})
	logger := xglog.WithComponent("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed: invalid configuration")
		os.Exit(exitStartupErr)
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "audiogated"})
	logger = xglog.WithComponent("main")
	logger.Info().
		Str("host", cfg.Application.Host).
		Int("port", cfg.Application.Port).
		Str("hmac_secret", xglog.RedactSecret(cfg.Application.HMACSecret)).
		Bool("allow_unsafe", cfg.Application.AllowUnsafe).
		Str("storage_backend", cfg.Storage.Backend).
		Msg("configuration loaded")

	loader, err := storage.NewLoader(cfg.Storage)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed: cannot construct source loader")
		os.Exit(exitStartupErr)
	}

	var resultStore storage.Putter
	if cfg.ResultStore.Enabled {
		rs, err := storage.NewResultStore(cfg.ResultStore.Storage)
		if err != nil {
			logger.Error().Err(err).Msg("startup failed: cannot construct result store")
			os.Exit(exitStartupErr)
		}
		resultStore = rs
	}

	cacheStore, err := cache.New(cfg.Cache, cfg.Processor)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed: cannot construct cache store")
		os.Exit(exitStartupErr)
	}

	proc := processor.New(cfg.Processor, loader, resultStore, cacheStore)
	defer proc.Shutdown()

	disabled := make(map[string]bool, len(cfg.Processor.DisabledFilters))
	for _, name := range cfg.Processor.DisabledFilters {
		disabled[name] = true
	}
	paramOpts := params.Options{
		DisabledFilters: disabled,
		MaxFilterOps:    cfg.Processor.MaxFilterOps,
	}

	server := api.New(cfg.Application, paramOpts, proc, cacheStore, loader, resultStore)

	addr := fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("listener failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	os.Exit(exitOK)
}
