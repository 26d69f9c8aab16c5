// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for invalid or inconsistent values.
// It is called automatically by LoadWithKoanf.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateCache,
		c.validateAnalysis,
		c.validateCollector,
		c.validateSecurity,
		c.validateAPI,
		c.validateSweeper,
		c.validateLogging,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty (use :memory: for an ephemeral store)")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive when cache is enabled")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.FreshnessWindow <= 0 {
		return errors.New("analysis.freshness_window must be positive")
	}
	return nil
}

func (c *Config) validateCollector() error {
	if c.Collector.BaseURL == "" {
		return errors.New("collector.base_url must not be empty")
	}
	if c.Collector.Timeout <= 0 {
		return errors.New("collector.timeout must be positive")
	}
	if c.Collector.RateLimit <= 0 {
		return errors.New("collector.rate_limit must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case AuthModeJWT:
		if c.Security.JWTSecret == "" {
			return errors.New("security.jwt_secret is required when auth_mode is jwt")
		}
		if len(c.Security.JWTSecret) < 32 {
			return errors.New("security.jwt_secret must be at least 32 characters")
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPasswordHash == "" {
			return errors.New("security.admin_username and security.admin_password_hash are required when auth_mode is jwt")
		}
	case AuthModeNone:
		// Disabling auth exposes the refresh endpoint; only allow it where
		// production checks are off.
		if c.Server.IsProduction() {
			return errors.New("security.auth_mode none is not allowed in production")
		}
	default:
		return fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode)
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return errors.New("security.rate_limit_reqs must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			return errors.New("security.rate_limit_window must be positive")
		}
	}

	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultLimit <= 0 {
		return errors.New("api.default_limit must be positive")
	}
	if c.API.MaxLimit < c.API.DefaultLimit {
		return fmt.Errorf("api.max_limit (%d) must not be below api.default_limit (%d)", c.API.MaxLimit, c.API.DefaultLimit)
	}
	return nil
}

func (c *Config) validateSweeper() error {
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		return errors.New("sweeper.interval must be positive when sweeper is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
