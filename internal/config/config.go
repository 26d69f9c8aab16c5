// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package config provides layered configuration loading for NichePulse.
//
// Configuration is loaded with Koanf v2 from three sources, in order of
// increasing priority:
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
//
// All settings can be expressed either in YAML (nested keys) or as flat
// environment variables (NICHE_ANALYSIS_TTL, DUCKDB_PATH, JWT_SECRET, ...).
package config

import "time"

// Config is the root configuration for the NichePulse service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Collector CollectorConfig `koanf:"collector"`
	Security  SecurityConfig  `koanf:"security"`
	API       APIConfig       `koanf:"api"`
	Sweeper   SweeperConfig   `koanf:"sweeper"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development" or "production"
}

// DatabaseConfig controls the embedded DuckDB aggregate store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // database file path, or ":memory:"
	MaxMemory string `koanf:"max_memory"` // DuckDB max_memory setting, e.g. "2GB"
	Threads   int    `koanf:"threads"`    // 0 = use runtime.NumCPU()
}

// CacheConfig controls the Badger-backed analysis cache.
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Path    string        `koanf:"path"` // empty = in-memory cache
	TTL     time.Duration `koanf:"ttl"`  // lifetime of cached analyses
}

// AnalysisConfig controls refresh orchestration.
type AnalysisConfig struct {
	// FreshnessWindow is the maximum age of a stored aggregate before a
	// non-forced request triggers re-collection.
	FreshnessWindow time.Duration `koanf:"freshness_window"`
}

// CollectorConfig controls outbound signal collection.
type CollectorConfig struct {
	// BaseURL is the root of the public hashtag pages. Tests point this at
	// a local httptest server.
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	// RateLimit is the maximum outbound requests per second.
	RateLimit float64 `koanf:"rate_limit"`
	// Seed fixes the synthetic signal generator. 0 = time-seeded.
	Seed int64 `koanf:"seed"`
}

// SecurityConfig controls authentication and request throttling.
// Auth modes accepted by SecurityConfig.AuthMode.
const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

type SecurityConfig struct {
	// AuthMode is "jwt" or "none". "none" disables auth on the refresh
	// endpoint and is only accepted in development environments.
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPasswordHash string        `koanf:"admin_password_hash"` // bcrypt hash
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// APIConfig controls response shaping for the trending endpoints.
type APIConfig struct {
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
}

// SweeperConfig controls the optional background freshness sweeper.
type SweeperConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port listen address for the HTTP server.
func (s *ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// IsProduction reports whether the server runs with production checks enabled.
func (s *ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
