// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nichepulse/nichepulse/internal/config"
	"github.com/nichepulse/nichepulse/internal/middleware"
)

// NewRouter builds the chi router for the service. The refresh endpoint
// requires a valid bearer token unless auth_mode is "none"; the remaining
// scraper endpoints accept an optional token.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	if len(cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Analysis and login requests are far more expensive than listing reads,
	// so they get a tighter per-IP budget.
	strictLimit := cfg.Security.RateLimitReqs / 5
	if strictLimit < 1 {
		strictLimit = 1
	}

	r.Route("/api/v1", func(r chi.Router) {
		if !cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		}

		r.Route("/scraper", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.Security.AuthMode != config.AuthModeNone {
					r.Use(h.jwtManager.OptionalAuth)
				}
				if !cfg.Security.RateLimitDisabled {
					r.Use(httprate.LimitByIP(strictLimit, cfg.Security.RateLimitWindow))
				}
				r.Post("/analyze-niche", h.HandleAnalyzeNiche)
			})

			r.Group(func(r chi.Router) {
				if cfg.Security.AuthMode != config.AuthModeNone {
					r.Use(h.jwtManager.OptionalAuth)
				}
				r.Get("/trending-hashtags", h.HandleTrendingHashtags)
				r.Get("/trending-audios", h.HandleTrendingAudios)
				r.Get("/top-influencers", h.HandleTopInfluencers)
				r.Get("/viral-posts", h.HandleViralPosts)
			})

			r.Group(func(r chi.Router) {
				if cfg.Security.AuthMode != config.AuthModeNone {
					r.Use(h.jwtManager.RequireAuth)
				}
				if !cfg.Security.RateLimitDisabled {
					r.Use(httprate.LimitByIP(strictLimit, cfg.Security.RateLimitWindow))
				}
				r.Post("/refresh-niche", h.HandleRefreshNiche)
			})
		})

		if cfg.Security.AuthMode != config.AuthModeNone {
			r.Group(func(r chi.Router) {
				if !cfg.Security.RateLimitDisabled {
					r.Use(httprate.LimitByIP(strictLimit, cfg.Security.RateLimitWindow))
				}
				r.Post("/auth/login", h.HandleLogin)
			})
		}
		r.Get("/health", h.HandleHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
