// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, repository host) via constructors.
  - Drivers: Storage, locking and the repository host each select a backend;
    [Config.Validate] checks that the chosen backend has what it needs.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Driver Names

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverGitHub   = "github"
	DriverLocal    = "local"
)

// # Configuration Schema

// Config holds all runtime configuration for the Kanko API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Storage backend for series, schedules and credit codes
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Per-series lock backend
	LockDriver string        `env:"LOCK_DRIVER" envDefault:"redis"`
	RedisURL   string        `env:"REDIS_URL"`
	LockTTL    time.Duration `env:"LOCK_TTL"    envDefault:"2m"`

	// Operator token keys (the server only needs the public half)
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Repository host
	RepoHostDriver string `env:"REPO_HOST_DRIVER" envDefault:"github"`
	GitHubAPIURL   string `env:"GITHUB_API_URL"   envDefault:"https://api.github.com"`
	GitHubToken    string `env:"GITHUB_TOKEN"`
	GitHubOwner    string `env:"GITHUB_OWNER"`
	PagesBaseURL   string `env:"PAGES_BASE_URL"`
	// LocalRepoPath is the badger directory of the local host; empty means in-memory.
	LocalRepoPath string `env:"LOCAL_REPO_PATH"`

	// Operator notifications (SMTP). An empty host logs notifications instead.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	NotifyFrom   string `env:"NOTIFY_FROM"   envDefault:"kanko@localhost"`
	NotifyEmail  string `env:"NOTIFY_EMAIL"`

	// Calendar and rendering
	Timezone    string `env:"TIMEZONE"      envDefault:"Asia/Tokyo"`
	ReportCron  string `env:"REPORT_CRON"   envDefault:"0 9 1 * *"`
	QRBaseURL   string `env:"QR_BASE_URL"   envDefault:"https://tokistorage.github.io/qr/"`
	PDFFontPath string `env:"PDF_FONT_PATH"`

	// Numbering defaults applied when a series is opened without explicit values
	DefaultVolumeStartYear     int `env:"DEFAULT_VOLUME_START_YEAR"     envDefault:"2026"`
	DefaultVolumeDurationYears int `env:"DEFAULT_VOLUME_DURATION_YEARS" envDefault:"20"`
	DefaultCadenceMonths       int `env:"DEFAULT_CADENCE_MONTHS"        envDefault:"3"`

	// Bounds on every call to the repository host
	ExternalCallTimeout  time.Duration `env:"EXTERNAL_CALL_TIMEOUT"  envDefault:"20s"`
	ExternalCallAttempts int           `env:"EXTERNAL_CALL_ATTEMPTS" envDefault:"3"`

	// Cross-Origin Resource Sharing (comma separated origin suffixes)
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	var problems []error

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Errorf("STORE_DRIVER %q is not one of postgres, memory", c.StoreDriver))
	}

	switch c.LockDriver {
	case DriverRedis:
		if c.RedisURL == "" {
			problems = append(problems, errors.New("REDIS_URL is required when LOCK_DRIVER=redis"))
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Errorf("LOCK_DRIVER %q is not one of redis, memory", c.LockDriver))
	}

	switch c.RepoHostDriver {
	case DriverGitHub:
		if c.GitHubToken == "" || c.GitHubOwner == "" {
			problems = append(problems, errors.New("GITHUB_TOKEN and GITHUB_OWNER are required when REPO_HOST_DRIVER=github"))
		}
	case DriverLocal:
	default:
		problems = append(problems, fmt.Errorf("REPO_HOST_DRIVER %q is not one of github, local", c.RepoHostDriver))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}

	if c.DefaultVolumeDurationYears <= 0 {
		problems = append(problems, errors.New("DEFAULT_VOLUME_DURATION_YEARS must be positive"))
	}

	if c.ExternalCallAttempts < 1 {
		problems = append(problems, errors.New("EXTERNAL_CALL_ATTEMPTS must be at least 1"))
	}

	if c.LockTTL <= 0 {
		problems = append(problems, errors.New("LOCK_TTL must be positive"))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %w", errors.Join(problems...))
	}
	return nil
}

// Location returns the configured time zone. [Config.Validate] guarantees it loads.
func (c *Config) Location() *time.Location {
	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}

// AllowedOrigins returns the trimmed, non-empty entries of EXTRA_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
