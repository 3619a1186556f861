package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds galley's settings.
type Config struct {
	APIBase        string
	SchemaPath     string
	DataDir        string
	LogLevel       string
	SavePolicy     string
	RequestTimeout time.Duration
}

const (
	defaultConfigPath     = "~/.config/galley/config.toml"
	defaultDataDir        = "~/.local/share/galley"
	defaultAPIBase        = "127.0.0.1:8750"
	defaultLogLevel       = "info"
	defaultSavePolicy     = "promote"
	defaultTimeoutSeconds = 10
)

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		APIBase:        defaultAPIBase,
		DataDir:        mustExpand(defaultDataDir),
		LogLevel:       defaultLogLevel,
		SavePolicy:     defaultSavePolicy,
		RequestTimeout: defaultTimeoutSeconds * time.Second,
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBase        string `toml:"api_base"`
		SchemaPath     string `toml:"schema_path"`
		DataDir        string `toml:"data_dir"`
		LogLevel       string `toml:"log_level"`
		SavePolicy     string `toml:"save_policy"`
		TimeoutSeconds int    `toml:"request_timeout_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}
	if v := strings.TrimSpace(raw.SchemaPath); v != "" {
		cfg.SchemaPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		cfg.DataDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.SavePolicy); v != "" {
		cfg.SavePolicy = strings.ToLower(v)
	}
	if raw.TimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}
	if cfg.SavePolicy != "promote" && cfg.SavePolicy != "refetch" {
		return Config{}, fmt.Errorf("parse config: save_policy must be promote or refetch, got %q", raw.SavePolicy)
	}

	return cfg, nil
}

// LogPath returns the application log file.
func (c Config) LogPath() string {
	return filepath.Join(c.dataDir(), "galley.log")
}

// SessionDBPath returns the session key-value database.
func (c Config) SessionDBPath() string {
	return filepath.Join(c.dataDir(), "session.db")
}

// ExportDir is where workbooks land by default.
func (c Config) ExportDir() string {
	return filepath.Join(c.dataDir(), "exports")
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
