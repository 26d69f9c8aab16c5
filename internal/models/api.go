// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package models

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Example success:
//
//	{
//	  "success": true,
//	  "message": "Niche analysis retrieved successfully",
//	  "data": {...},
//	  "cached": true
//	}
//
// Example failure:
//
//	{
//	  "success": false,
//	  "message": "Niche is required and must be a string",
//	  "error": {"code": "INVALID_INPUT", "message": "niche must not be empty"}
//	}
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	// Cached is set only on analysis responses, where an explicit false
	// distinguishes a fresh result from an omitted field.
	Cached *bool     `json:"cached,omitempty"`
	Error  *APIError `json:"error,omitempty"`
}

// APIError carries a machine-readable error code alongside the human message.
//
// Common codes:
//   - INVALID_INPUT: request failed validation
//   - AUTHENTICATION_ERROR: missing or invalid credentials
//   - COLLECTION_FAILED: a signal sub-collector failed
//   - ANALYSIS_FAILED: persistence failed after collection succeeded
//   - INTERNAL_ERROR: anything else
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AnalyzeNicheRequest is the body of POST /analyze-niche and
// POST /refresh-niche. Validation happens at the boundary so the
// orchestrator only ever sees a well-formed niche string.
type AnalyzeNicheRequest struct {
	Niche string `json:"niche" validate:"required,max=100"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

// TrendingQuery holds the validated query parameters shared by the four
// listing endpoints.
type TrendingQuery struct {
	Niche string `validate:"omitempty,max=100"`
	Limit int    `validate:"min=1,max=100"`
}

// HealthStatus reports component readiness for the health endpoint.
type HealthStatus struct {
	Status        string `json:"status"`
	Store         string `json:"store"`
	Cache         string `json:"cache"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Version       string `json:"version,omitempty"`
}
