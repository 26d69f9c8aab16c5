// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package api

import (
	"net/http"

	"github.com/nichepulse/nichepulse/internal/logging"
	"github.com/nichepulse/nichepulse/internal/models"
)

// HandleTrendingHashtags serves GET /api/v1/scraper/trending-hashtags.
func (h *Handler) HandleTrendingHashtags(w http.ResponseWriter, r *http.Request) {
	query, ok := h.trendingQuery(w, r)
	if !ok {
		return
	}

	hashtags, err := h.trending.Hashtags(r.Context(), query.Niche, query.Limit)
	if err != nil {
		logging.Error().Err(err).Msg("Trending hashtags query failed")
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to retrieve trending hashtags", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success: true,
		Message: "Trending hashtags retrieved successfully",
		Data:    hashtags,
	})
}

// HandleTrendingAudios serves GET /api/v1/scraper/trending-audios.
func (h *Handler) HandleTrendingAudios(w http.ResponseWriter, r *http.Request) {
	query, ok := h.trendingQuery(w, r)
	if !ok {
		return
	}

	audios, err := h.trending.Audios(r.Context(), query.Niche, query.Limit)
	if err != nil {
		logging.Error().Err(err).Msg("Trending audios query failed")
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to retrieve trending audios", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success: true,
		Message: "Trending audios retrieved successfully",
		Data:    audios,
	})
}

// HandleTopInfluencers serves GET /api/v1/scraper/top-influencers.
func (h *Handler) HandleTopInfluencers(w http.ResponseWriter, r *http.Request) {
	query, ok := h.trendingQuery(w, r)
	if !ok {
		return
	}

	influencers, err := h.trending.Influencers(r.Context(), query.Niche, query.Limit)
	if err != nil {
		logging.Error().Err(err).Msg("Top influencers query failed")
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to retrieve top influencers", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success: true,
		Message: "Top influencers retrieved successfully",
		Data:    influencers,
	})
}

// HandleViralPosts serves GET /api/v1/scraper/viral-posts.
func (h *Handler) HandleViralPosts(w http.ResponseWriter, r *http.Request) {
	query, ok := h.trendingQuery(w, r)
	if !ok {
		return
	}

	posts, err := h.trending.ViralPosts(r.Context(), query.Niche, query.Limit)
	if err != nil {
		logging.Error().Err(err).Msg("Viral posts query failed")
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to retrieve viral posts", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success: true,
		Message: "Viral posts retrieved successfully",
		Data:    posts,
	})
}

// trendingQuery parses and validates the query parameters shared by the
// listing endpoints. A false return means the response has been written.
func (h *Handler) trendingQuery(w http.ResponseWriter, r *http.Request) (models.TrendingQuery, bool) {
	query := models.TrendingQuery{
		Niche: r.URL.Query().Get("niche"),
		Limit: getIntParam(r, "limit", h.apiCfg.DefaultLimit),
	}
	if query.Limit > h.apiCfg.MaxLimit {
		query.Limit = h.apiCfg.MaxLimit
	}

	if apiErr := validateRequest(&query); apiErr != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", apiErr.Message, nil)
		return models.TrendingQuery{}, false
	}
	return query, true
}
