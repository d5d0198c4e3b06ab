package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// MinSyncInterval is the floor applied to FS_SYNC_INTERVAL.
const MinSyncInterval = time.Minute

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DBPath      string `envconfig:"DB_PATH" default:"./data/projectsync.db"`

	// Filesystem sync
	SyncRoot     string        `envconfig:"FS_SYNC_ROOT" default:"/app/projects"`
	AllowedRoot  string        `envconfig:"FS_SYNC_ALLOWED_ROOT"` // defaults to FS_SYNC_ROOT
	SyncInterval time.Duration `envconfig:"FS_SYNC_INTERVAL" default:"15m"`
	SnapshotPath string        `envconfig:"FS_SYNC_SNAPSHOT_PATH" default:"./data/filesystem_snapshot.json"`
	OverviewPath string        `envconfig:"PROJECTS_OVERVIEW_PATH" default:"./ai/memory/systems/projects_overview.md"`
	BrandsFile   string        `envconfig:"BRANDS_FILE"`

	// Management API
	MgmtListenAddr     string `envconfig:"MGMT_LISTEN_ADDR" default:":8090"`
	MgmtAuthMode       string `envconfig:"MGMT_AUTH_MODE" default:"jwt"` // jwt | api-key | none
	MgmtAPIKey         string `envconfig:"MGMT_API_KEY"`
	JWTSecret          string `envconfig:"JWT_SECRET"`
	MgmtRateLimitRPS   int    `envconfig:"MGMT_RATE_LIMIT_RPS" default:"10"`
	MgmtRateLimitBurst int    `envconfig:"MGMT_RATE_LIMIT_BURST" default:"30"`
	MgmtCORSOrigins    string `envconfig:"MGMT_CORS_ORIGINS"`
	MgmtTLSCert        string `envconfig:"MGMT_TLS_CERT"`
	MgmtTLSKey         string `envconfig:"MGMT_TLS_KEY"`
}

// EffectiveAllowedRoot returns the allow-listed base every scan root must resolve into.
func (c *Config) EffectiveAllowedRoot() string {
	if strings.TrimSpace(c.AllowedRoot) != "" {
		return c.AllowedRoot
	}
	return c.SyncRoot
}

// EffectiveSyncInterval clamps the scheduler interval to MinSyncInterval.
func (c *Config) EffectiveSyncInterval() time.Duration {
	if c.SyncInterval < MinSyncInterval {
		return MinSyncInterval
	}
	return c.SyncInterval
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.EffectiveAllowedRoot()) {
		return fmt.Errorf("FS_SYNC_ALLOWED_ROOT must be absolute, got %q", c.EffectiveAllowedRoot())
	}
	switch c.MgmtAuthMode {
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when MGMT_AUTH_MODE=jwt")
		}
	case "api-key":
		if c.MgmtAPIKey == "" {
			return fmt.Errorf("MGMT_API_KEY is required when MGMT_AUTH_MODE=api-key")
		}
	case "none":
	default:
		return fmt.Errorf("unknown MGMT_AUTH_MODE %q", c.MgmtAuthMode)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
