// Package config loads CLI configuration: a YAML file overridden by
// COFFRE_* environment variables, both optional.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is everything the CLI reads at startup.
type Config struct {
	// ArchivePath is the default store location when -f is not given.
	ArchivePath string `yaml:"archive_path"`

	// LogLevel for diagnostic output: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// NoColor disables colored terminal output.
	NoColor bool `yaml:"no_color"`

	// SaveOnClose saves instead of refusing when the store is closed
	// with unsaved changes.
	SaveOnClose bool `yaml:"save_on_close"`

	// ClipClearSeconds is how long copied secrets stay on the
	// clipboard before being cleared. Zero disables clearing.
	ClipClearSeconds int `yaml:"clip_clear_seconds"`
}

// Default returns the built-in configuration.
func Default() Config {
	path := ".coffre"
	if home, err := os.UserHomeDir(); err == nil && len(home) > 0 {
		path = filepath.Join(home, ".coffre")
	}

	return Config{
		ArchivePath:      path,
		LogLevel:         "warn",
		ClipClearSeconds: 30,
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || len(home) == 0 {
		return ""
	}
	return filepath.Join(home, ".config", "coffre", "config.yml")
}

// Load reads configuration from path, then applies environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("COFFRE_ARCHIVE"); ok {
		c.ArchivePath = v
	}
	if v, ok := os.LookupEnv("COFFRE_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("COFFRE_NO_COLOR"); ok {
		c.NoColor = isTruthy(v)
	}
	if v, ok := os.LookupEnv("COFFRE_SAVE_ON_CLOSE"); ok {
		c.SaveOnClose = isTruthy(v)
	}
	if v, ok := os.LookupEnv("COFFRE_CLIP_CLEAR"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.ClipClearSeconds = n
		}
	}
}

func isTruthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
