// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package main is the entry point for the NichePulse server.
//
// NichePulse analyzes Instagram niches: for each requested niche it collects
// trending hashtags, audios, influencers and viral posts, derives market
// guidance, and serves the aggregate through a REST API. Results are cached
// in-process and persisted in DuckDB, so repeat requests within the
// freshness window never touch Instagram.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered from defaults, config file, environment
//  2. Store: embedded DuckDB holding one aggregate per niche
//  3. Cache: BadgerDB (persistent) or in-memory, keyed by normalized niche
//  4. Collector: rate-limited hashtag page fetcher behind a circuit breaker
//  5. Orchestrator: cache-first, store-fallback, collect-on-miss analysis
//  6. HTTP server: REST API under Suture supervision
//
// # Configuration
//
// Higher priority wins: environment variables, then config.yaml, then
// built-in defaults. For JWT authentication (default):
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_USERNAME: admin username
//   - ADMIN_PASSWORD_HASH: bcrypt hash of the admin password
//
// AUTH_MODE=none disables authentication and is rejected in production.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the server stops accepting
// connections, in-flight requests drain within the shutdown timeout, then
// cache and store are closed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nichepulse/nichepulse/internal/analysis"
	"github.com/nichepulse/nichepulse/internal/api"
	"github.com/nichepulse/nichepulse/internal/auth"
	"github.com/nichepulse/nichepulse/internal/cache"
	"github.com/nichepulse/nichepulse/internal/collector"
	"github.com/nichepulse/nichepulse/internal/config"
	"github.com/nichepulse/nichepulse/internal/logging"
	"github.com/nichepulse/nichepulse/internal/store"
	"github.com/nichepulse/nichepulse/internal/supervisor"
	"github.com/nichepulse/nichepulse/internal/supervisor/services"
	"github.com/nichepulse/nichepulse/internal/sweeper"
	"github.com/nichepulse/nichepulse/internal/trending"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Config errors land on the default logger since logging config is
		// not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Dur("cache_ttl", cfg.Cache.TTL).
		Dur("freshness_window", cfg.Analysis.FreshnessWindow).
		Msg("Starting NichePulse")

	st, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Msg("Store initialized")

	analysisCache := newCache(&cfg.Cache)
	defer func() {
		switch c := analysisCache.(type) {
		case interface{ Close() error }:
			if err := c.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing cache")
			}
		case interface{ Close() }:
			c.Close()
		}
	}()

	coll := collector.New(&cfg.Collector)

	analysisSvc := analysis.NewService(analysis.Options{
		Store:           st,
		Cache:           analysisCache,
		Collector:       coll,
		FreshnessWindow: cfg.Analysis.FreshnessWindow,
		CacheTTL:        cfg.Cache.TTL,
	})
	trendingSvc := trending.NewService(st)

	var jwtManager *auth.JWTManager
	var credentials *auth.CredentialChecker
	switch cfg.Security.AuthMode {
	case config.AuthModeJWT:
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		credentials = auth.NewCredentialChecker(&cfg.Security)
		logging.Info().Msg("JWT authentication enabled")
	case config.AuthModeNone:
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("The refresh endpoint is publicly accessible; never use this outside development")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}

	handler := api.NewHandler(analysisSvc, trendingSvc, st, analysisCache, jwtManager, credentials, &cfg.API)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if cfg.Sweeper.Enabled {
		sw := sweeper.New(st, analysisSvc, cfg.Sweeper.Interval, cfg.Analysis.FreshnessWindow)
		tree.AddBackgroundService(sw)
		logging.Info().Dur("interval", cfg.Sweeper.Interval).Msg("Freshness sweeper added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// newCache picks the cache backend from configuration. A Badger open failure
// falls back to the in-memory cache rather than aborting startup; the
// service is correct without a persistent cache, just slower after restarts.
func newCache(cfg *config.CacheConfig) cache.Cache {
	if !cfg.Enabled {
		logging.Info().Msg("Analysis cache disabled")
		return cache.NewNoop()
	}
	if cfg.Path == "" {
		logging.Info().Msg("Using in-memory analysis cache")
		return cache.NewMemory(cfg.TTL)
	}

	badgerCache, err := cache.NewBadger(cfg.Path)
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.Path).Msg("Failed to open Badger cache, falling back to memory")
		return cache.NewMemory(cfg.TTL)
	}
	logging.Info().Str("path", cfg.Path).Msg("Badger analysis cache opened")
	return badgerCache
}
