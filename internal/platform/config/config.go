// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

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
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Altair API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis) for pending verifications and resend windows
	RedisURL string `env:"REDIS_URL,required"`

	// SessionSecret signs the OAuth state parameter. It never leaves the process.
	SessionSecret string `env:"SESSION_SECRET,required"`

	// Identity core knobs. Fallbacks mirror internal/platform/constants.
	SessionTTL      time.Duration `env:"SESSION_TTL"       envDefault:"720h"`
	CodeTTL         time.Duration `env:"CODE_TTL"          envDefault:"15m"`
	CodeMaxAttempts int           `env:"CODE_MAX_ATTEMPTS" envDefault:"5"`
	ResendWindow    time.Duration `env:"RESEND_WINDOW"     envDefault:"60s"`

	// OAuth provider credentials. A provider with an empty client ID is not mounted.
	OAuthRedirectBase  string `env:"OAUTH_REDIRECT_BASE" envDefault:"http://localhost:8080/api/v1/auth/oauth"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GithubClientID     string `env:"GITHUB_CLIENT_ID"`
	GithubClientSecret string `env:"GITHUB_CLIENT_SECRET"`

	// Outbound mail (AWS SES)
	MailFromAddress string `env:"MAIL_FROM_ADDRESS" envDefault:"no-reply@altair.app"`
	AWSRegion       string `env:"AWS_REGION"        envDefault:"us-east-1"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
