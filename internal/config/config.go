// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

// Package config loads Visitgrid configuration via Koanf v2 with layered
// sources, highest priority last:
//
//  1. Built-in defaults
//  2. Optional YAML config file (CONFIG_PATH or config.yaml)
//  3. Environment variables (a local .env file is loaded first if present)
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Tracking TrackingConfig `koanf:"tracking"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// TrackingConfig holds identity-resolution and reaper settings.
type TrackingConfig struct {
	// IdleThreshold is how long a visit may sit without activity before
	// the reaper deactivates it.
	IdleThreshold time.Duration `koanf:"idle_threshold"`

	// ReapInterval is the period between reaper sweeps.
	ReapInterval time.Duration `koanf:"reap_interval"`

	// SessionCacheTTL bounds the in-process session-handle cache.
	SessionCacheTTL time.Duration `koanf:"session_cache_ttl"`

	// TrustedProxies lists proxy CIDRs/IPs whose forwarding headers are
	// honored during client IP resolution. Empty means honor all
	// (suitable only behind a controlled reverse proxy).
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// APIConfig holds pagination and export limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
	ExportRowCap    int `koanf:"export_row_cap"`
	GeoTopN         int `koanf:"geo_top_n"`
}

// SecurityConfig holds authentication settings for the admin surface.
type SecurityConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	// AdminPasswordHash is a bcrypt hash; AdminPassword (plaintext) is
	// accepted for development and hashed at startup.
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	AdminPasswordHash string        `koanf:"admin_password_hash"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Environment, "development")
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Tracking.IdleThreshold <= 0 {
		return fmt.Errorf("tracking idle threshold must be positive, got %s", c.Tracking.IdleThreshold)
	}
	if c.Tracking.ReapInterval <= 0 {
		return fmt.Errorf("tracking reap interval must be positive, got %s", c.Tracking.ReapInterval)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("max page size %d below default page size %d", c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.Security.JWTSecret))
	}
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required")
	}
	if c.Security.AdminPassword == "" && c.Security.AdminPasswordHash == "" {
		return fmt.Errorf("one of ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if c.Security.AdminPassword != "" && len(c.Security.AdminPassword) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
		return nil
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
}
