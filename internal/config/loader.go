package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/lensview/lensview/internal/domain"
)

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "lensview"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "lensview"))
		paths = append(paths, filepath.Join(homeDir, ".lensview"))
	}

	return paths
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.max_transfer_mb", 50)
	v.SetDefault("engine.thumbnail_cache_mb", 64)
	v.SetDefault("engine.thumbnail_max_dim", 256)
	v.SetDefault("engine.dial_timeout_seconds", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.max_backups", 3)

	if cacheDir, err := os.UserCacheDir(); err == nil {
		v.SetDefault("staging.path", filepath.Join(cacheDir, "lensview", "staging"))
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		v.SetDefault("data_dir", filepath.Join(configDir, "lensview"))
	}
}

// Load reads and parses a configuration file.
// If path is empty, searches default locations for config.yaml; a missing
// file yields the built-in defaults. Environment variables with the
// LENSVIEW_ prefix override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LENSVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// No file in any search path: run on defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if path != "" {
				if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
					return nil, domain.ErrConfigNotFound
				}
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.Staging.Path = ExpandPath(cfg.Staging.Path)
	cfg.DataDir = ExpandPath(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.Staging.Path = ExpandPath(cfg.Staging.Path)
	cfg.DataDir = ExpandPath(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
