// Package config loads addonvet settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "addonvet.yaml"
	homeConfigName    = "config.yaml"
)

// Config is the on-disk settings shape. Command-line flags override it.
type Config struct {
	APIVersions string          `yaml:"apiVersions,omitempty"`
	Schema      string          `yaml:"schema,omitempty"`
	ScratchDir  string          `yaml:"scratchDir,omitempty"`
	ErrorOutput string          `yaml:"errorOutput,omitempty"`
	Download    DownloadConfig  `yaml:"download,omitempty"`
	Log         LogConfig       `yaml:"log,omitempty"`
	History     HistoryConfig   `yaml:"history,omitempty"`
	Telemetry   TelemetryConfig `yaml:"telemetry,omitempty"`
	Watch       WatchConfig     `yaml:"watch,omitempty"`
}

// DownloadConfig tunes package downloads.
type DownloadConfig struct {
	BlockSize int           `yaml:"blockSize,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// HistoryConfig points at the report database. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty"`
	Insecure    bool   `yaml:"insecure,omitempty"`
	ServiceName string `yaml:"serviceName,omitempty"`
}

// WatchConfig holds the default schedule for the watch command.
type WatchConfig struct {
	Schedule string `yaml:"schedule,omitempty"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		Download: DownloadConfig{
			BlockSize: 8 * 1024,
			Timeout:   5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "addonvet",
		},
	}
}

// DiscoverPath resolves the config location with first-match semantics:
// the explicit path, ./addonvet.yaml, then ~/.addonvet/config.yaml.
func DiscoverPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverPathFrom is a testable variant of DiscoverPath.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		if homeDir != "" {
			candidates = append(candidates, filepath.Join(homeDir, ".addonvet", homeConfigName))
		}
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load reads path over the defaults. Environment variables in path-valued
// keys are expanded and relative paths resolve against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	for _, p := range []*string{
		&cfg.APIVersions,
		&cfg.Schema,
		&cfg.ScratchDir,
		&cfg.ErrorOutput,
		&cfg.History.Path,
	} {
		*p = resolveConfigRelative(baseDir, os.ExpandEnv(strings.TrimSpace(*p)))
	}
	cfg.Telemetry.Endpoint = os.ExpandEnv(cfg.Telemetry.Endpoint)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// LoadDiscovered discovers and loads the config. Defaults are returned
// when no file exists and no explicit path was given.
func LoadDiscovered(explicitPath string) (Config, string, error) {
	path, found, err := DiscoverPath(explicitPath)
	if err != nil {
		return Config{}, "", err
	}
	if !found {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Download.BlockSize < 0 {
		errs = append(errs, fmt.Errorf("download.blockSize must not be negative, got %d", c.Download.BlockSize))
	}
	if c.Download.Timeout < 0 {
		errs = append(errs, fmt.Errorf("download.timeout must not be negative, got %s", c.Download.Timeout))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func resolveConfigRelative(baseDir, p string) string {
	if p == "" {
		return ""
	}
	clean := filepath.Clean(p)
	if filepath.IsAbs(clean) {
		return clean
	}
	return filepath.Join(baseDir, clean)
}
