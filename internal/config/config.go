// Package config loads settings from defaults, an optional YAML file and
// JIANYUE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/justyntemme/jianyue/internal/logging"
)

const (
	configFileName = "config"
	configDirName  = "jianyue"
	envPrefix      = "JIANYUE"
)

// StorageConfig selects the position store backend
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// InputConfig maps terminal cells to the pixel distances swipe gestures use
type InputConfig struct {
	CellWidth  float64 `mapstructure:"cell_width" yaml:"cell_width"`
	CellHeight float64 `mapstructure:"cell_height" yaml:"cell_height"`
}

// Config holds the application configuration
type Config struct {
	// Library is a directory or http(s) URL holding index.json and the books
	Library string         `mapstructure:"library" yaml:"library"`
	Storage StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Logging logging.Config `mapstructure:"logging" yaml:"logging"`
	Input   InputConfig    `mapstructure:"input" yaml:"input"`

	// file the settings were read from, empty when none was found
	file string
}

// File returns the configuration file in use, if any
func (c *Config) File() string {
	return c.file
}

// Load reads the configuration. cfgFile overrides the default location.
func Load(cfgFile string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("library", "epubs")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(dir, "positions.db"))
	v.SetDefault("logging.level", logging.LevelNone)
	v.SetDefault("logging.destination", filepath.Join(dir, "jianyue.log"))
	v.SetDefault("logging.mode", "overwrite")
	v.SetDefault("input.cell_width", 8.0)
	v.SetDefault("input.cell_height", 16.0)

	// Environment variables with JIANYUE_ prefix, e.g. JIANYUE_STORAGE_DRIVER
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()
	if _, statErr := os.Stat(cfg.file); cfg.file != "" && statErr != nil {
		cfg.file = ""
	}
	return &cfg, nil
}

// Dir returns the directory holding the configuration file
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, configDirName), nil
}
