// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package api implements the HTTP surface of NichePulse: the niche analysis
// endpoints, the trending projections, authentication and health.
//
// Every endpoint responds with the models.APIResponse envelope. Analysis
// responses additionally carry a cached flag so clients can tell a cache hit
// from a fresh result.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nichepulse/nichepulse/internal/analysis"
	"github.com/nichepulse/nichepulse/internal/auth"
	"github.com/nichepulse/nichepulse/internal/cache"
	"github.com/nichepulse/nichepulse/internal/config"
	"github.com/nichepulse/nichepulse/internal/logging"
	"github.com/nichepulse/nichepulse/internal/models"
	"github.com/nichepulse/nichepulse/internal/trending"
)

// Version is the service version reported by the health endpoint.
// Overridden at build time via -ldflags.
var Version = "dev"

// Pinger is the health probe the handler runs against the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the NichePulse API.
type Handler struct {
	analysis    *analysis.Service
	trending    *trending.Service
	store       Pinger
	cache       cache.Cache
	jwtManager  *auth.JWTManager
	credentials *auth.CredentialChecker
	apiCfg      *config.APIConfig
	startTime   time.Time
}

// NewHandler creates the API handler.
func NewHandler(
	analysisSvc *analysis.Service,
	trendingSvc *trending.Service,
	store Pinger,
	c cache.Cache,
	jwtManager *auth.JWTManager,
	credentials *auth.CredentialChecker,
	apiCfg *config.APIConfig,
) *Handler {
	return &Handler{
		analysis:    analysisSvc,
		trending:    trendingSvc,
		store:       store,
		cache:       c,
		jwtManager:  jwtManager,
		credentials: credentials,
		apiCfg:      apiCfg,
		startTime:   time.Now(),
	}
}

// HandleAnalyzeNiche serves POST /api/v1/scraper/analyze-niche. It returns
// the analysis from the cheapest layer that has one, collecting fresh
// signals only when both cache and store miss.
func (h *Handler) HandleAnalyzeNiche(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeNicheRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Niche is required and must be a string", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Niche is required and must be a string", nil)
		return
	}

	agg, source, err := h.analysis.GetOrRefresh(r.Context(), req.Niche)
	if err != nil {
		h.respondAnalysisError(w, err, "Failed to analyze niche")
		return
	}

	message := "Niche analysis retrieved successfully"
	if source == analysis.SourceCollected {
		message = "Niche analysis completed successfully"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success: true,
		Message: message,
		Data:    agg,
		Cached:  boolPtr(source == analysis.SourceCache),
	})
}

// HandleRefreshNiche serves POST /api/v1/scraper/refresh-niche. It always
// re-collects, then re-primes cache and store. Requires authentication.
func (h *Handler) HandleRefreshNiche(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeNicheRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Niche is required and must be a string", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Niche is required and must be a string", nil)
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		logging.Info().
			Str("user", claims.Username).
			Str("niche", sanitizeLogValue(req.Niche)).
			Msg("Forced refresh requested")
	}

	agg, _, err := h.analysis.ForceRefresh(r.Context(), req.Niche)
	if err != nil {
		h.respondAnalysisError(w, err, "Failed to refresh niche data")
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success: true,
		Message: "Niche data refreshed successfully",
		Data:    agg,
	})
}

// respondAnalysisError maps orchestrator errors to HTTP responses.
func (h *Handler) respondAnalysisError(w http.ResponseWriter, err error, message string) {
	var collErr *analysis.CollectionError
	var persistErr *analysis.PersistError

	switch {
	case errors.Is(err, analysis.ErrInvalidNiche):
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Niche is required and must be a string", nil)
	case errors.As(err, &collErr):
		respondError(w, http.StatusInternalServerError, "COLLECTION_FAILED", message, err)
	case errors.As(err, &persistErr):
		respondError(w, http.StatusInternalServerError, "ANALYSIS_FAILED", message, err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message, err)
	}
}

// HandleLogin serves POST /api/v1/auth/login. Successful logins receive a
// bearer token for the refresh endpoint.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Username and password are required", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Username and password are required", nil)
		return
	}

	role, err := h.credentials.Verify(req.Username, req.Password)
	if err != nil {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Failed login attempt")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid username or password", nil)
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username, role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", err)
		return
	}

	logging.Info().Str("username", sanitizeLogValue(req.Username)).Msg("User logged in")

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success: true,
		Message: "Login successful",
		Data: models.LoginResponse{
			Token:     token,
			ExpiresIn: int64(h.jwtManager.Timeout().Seconds()),
		},
	})
}

// HandleHealth serves GET /api/v1/health. Returns 503 when the store is
// unreachable; a degraded cache does not fail the check, the service still
// works without it.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := models.HealthStatus{
		Status:        "healthy",
		Store:         "up",
		Cache:         "up",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Version:       Version,
	}

	if d, ok := h.cache.(interface{ Degraded() bool }); ok && d.Degraded() {
		status.Status = "degraded"
		status.Cache = "degraded"
	}

	httpStatus := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Store = "down"
		httpStatus = http.StatusServiceUnavailable
		logging.Error().Err(err).Msg("Health check: store unreachable")
	}

	respondJSON(w, httpStatus, &models.APIResponse{
		Success: httpStatus == http.StatusOK,
		Message: "Health status",
		Data:    status,
	})
}
