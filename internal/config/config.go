package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lensview/lensview/internal/domain"
	"github.com/lensview/lensview/internal/logger"
)

// Config represents the complete configuration for lensview
type Config struct {
	// Engine holds the browsing engine limits
	Engine EngineConfig `mapstructure:"engine"`

	// Staging configures the repository mirror working area
	Staging StagingConfig `mapstructure:"staging"`

	// Log configures structured logging
	Log LogConfig `mapstructure:"log"`

	// DataDir holds the profile history database
	DataDir string `mapstructure:"data_dir"`
}

// EngineConfig holds the operational limits of the engine
type EngineConfig struct {
	// MaxTransferMB caps a single file read
	MaxTransferMB int `mapstructure:"max_transfer_mb"`

	// ThumbnailCacheMB bounds the in-memory thumbnail cache
	ThumbnailCacheMB int `mapstructure:"thumbnail_cache_mb"`

	// ThumbnailMaxDim is the longest edge of derived thumbnails
	ThumbnailMaxDim int `mapstructure:"thumbnail_max_dim"`

	// DialTimeoutSeconds caps transport establishment
	DialTimeoutSeconds int `mapstructure:"dial_timeout_seconds"`
}

// StagingConfig configures the repository mirror working area
type StagingConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Engine.MaxTransferMB <= 0 {
		return fmt.Errorf("%w: engine.max_transfer_mb must be positive", domain.ErrConfigInvalid)
	}
	if c.Engine.ThumbnailCacheMB <= 0 {
		return fmt.Errorf("%w: engine.thumbnail_cache_mb must be positive", domain.ErrConfigInvalid)
	}
	if c.Engine.ThumbnailMaxDim <= 0 {
		return fmt.Errorf("%w: engine.thumbnail_max_dim must be positive", domain.ErrConfigInvalid)
	}
	if c.Engine.DialTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: engine.dial_timeout_seconds must be positive", domain.ErrConfigInvalid)
	}
	if c.Staging.Path == "" {
		return fmt.Errorf("%w: staging.path cannot be empty", domain.ErrConfigInvalid)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", domain.ErrConfigInvalid)
	}
	return nil
}

// MaxTransferBytes returns the transfer cap in bytes
func (c *Config) MaxTransferBytes() int64 {
	return int64(c.Engine.MaxTransferMB) << 20
}

// ThumbnailCacheBytes returns the thumbnail cache budget in bytes
func (c *Config) ThumbnailCacheBytes() int64 {
	return int64(c.Engine.ThumbnailCacheMB) << 20
}

// DialTimeout returns the transport establishment cap
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Engine.DialTimeoutSeconds) * time.Second
}

// LoggerConfig maps the log section onto the logger configuration
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if c.Log.File != "" {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       ExpandPath(c.Log.File),
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxAgeDays: c.Log.MaxAgeDays,
			MaxBackups: c.Log.MaxBackups,
		}
	}
	return cfg
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
