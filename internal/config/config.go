// Package config provides configuration management for go-sitekit.
// Values come from the environment (SITEKIT_* variables); the cmd/
// binaries layer flag overrides on top of the parsed result.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Web defaults
	DefaultListenPort = 11980

	// Gravatar bounds
	MinGravatarSize = 1
	MaxGravatarSize = 2048
)

// MainConfig holds the main configuration for go-sitekit
type MainConfig struct {
	// Web interface settings
	Web WebConfig `envPrefix:"SITEKIT_WEB_"`

	// Database settings
	Database DatabaseConfig `envPrefix:"SITEKIT_DB_"`

	// Gravatar display defaults (overridable per-site via site_settings)
	Gravatar GravatarConfig `envPrefix:"SITEKIT_GRAVATAR_"`

	// Asset serial scanning
	Assets AssetConfig `envPrefix:"SITEKIT_ASSETS_"`

	AppVersion string `env:"-"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort  int    `env:"PORT" envDefault:"11980"`
	Hostname    string `env:"HOSTNAME" envDefault:"localhost"`
	SSL         bool   `env:"SSL" envDefault:"false"`
	CertFile    string `env:"CERT_FILE"`
	KeyFile     string `env:"KEY_FILE"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"internal/web/static"`
	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"web/templates"`
	Debug       bool   `env:"DEBUG" envDefault:"false"` // Enable debug logging for sessions/auth
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DataDir string `env:"DATA_DIR" envDefault:"data"` // Directory holding sitekit.sqlite3
}

// GravatarConfig holds fallback gravatar options used when the
// site_settings table has no overrides.
type GravatarConfig struct {
	Size    int    `env:"SIZE" envDefault:"48"`
	Rating  string `env:"RATING" envDefault:"g"`
	Default string `env:"DEFAULT" envDefault:"mm"`
}

// AssetConfig holds cache-busting serial scanner configuration.
// MediaDirs defaults to the embed source of the static handler so the
// serial tracks the files actually served.
type AssetConfig struct {
	MediaDirs    []string `env:"MEDIA_DIRS" envSeparator:"," envDefault:"internal/web/static"`
	TemplateDirs []string `env:"TEMPLATE_DIRS" envSeparator:"," envDefault:"web/templates"`
	RefreshSpec  string   `env:"REFRESH_SPEC" envDefault:"@every 5m"` // cron spec for serial rescans
}

// FromEnv parses the full configuration from the environment.
func FromEnv() (*MainConfig, error) {
	cfg := NewDefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		AppVersion: AppVersion, // Set application version
		Web: WebConfig{
			ListenPort:  DefaultListenPort,
			SSL:         false,
			Hostname:    "localhost",
			StaticDir:   "internal/web/static",
			TemplateDir: "web/templates",
		},
		Database: DatabaseConfig{
			DataDir: "data",
		},
		Gravatar: GravatarConfig{
			Size:    48,
			Rating:  "g",
			Default: "mm",
		},
		Assets: AssetConfig{
			MediaDirs:    []string{"internal/web/static"},
			TemplateDirs: []string{"web/templates"},
			RefreshSpec:  "@every 5m",
		},
	}
}
