package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
)

// FileName is the config file looked up when no path is given.
const FileName = "coinledger.yaml"

// Config represents the top-level coinledger.yaml configuration.
type Config struct {
	UserID         string         `yaml:"user_id"`
	DefaultProfile string         `yaml:"default_profile"`
	Storage        StorageConfig  `yaml:"storage"`
	Log            LogConfig      `yaml:"log"`
	Defaults       model.Settings `yaml:"defaults"`
	Report         ReportConfig   `yaml:"report"`
	HTTP           HTTPConfig     `yaml:"http"`
}

// StorageConfig selects the persistence backends.
type StorageConfig struct {
	DataDir  string       `yaml:"data_dir"`
	Fallback string       `yaml:"fallback"` // "local" or "session"
	Remote   RemoteConfig `yaml:"remote"`
}

// RemoteConfig configures the remote document store. An empty DSN disables it.
type RemoteConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// ReportConfig tunes the derived views.
type ReportConfig struct {
	SpendingRelabel map[string]string `yaml:"spending_relabel,omitempty"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		UserID:         "default_user",
		DefaultProfile: model.DefaultProfile,
		Storage: StorageConfig{
			DataDir:  filepath.Join("~", "Documents", "CoinTracker"),
			Fallback: storage.TierLocal.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Defaults: model.DefaultSettings(),
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a coinledger.yaml file from disk. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Storage.Fallback != "local" && c.Storage.Fallback != "session" {
		return fmt.Errorf("invalid storage.fallback %q: want local or session", c.Storage.Fallback)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q: want text or json", c.Log.Format)
	}
	if c.Defaults.Goal < 0 {
		return fmt.Errorf("invalid defaults.goal %d: must not be negative", c.Defaults.Goal)
	}
	if c.DefaultProfile != "" {
		if err := model.ValidateProfileName(c.DefaultProfile); err != nil {
			return fmt.Errorf("invalid default_profile: %w", err)
		}
	}
	return nil
}

// DataDir returns the local data directory with a leading ~ expanded.
func (c *Config) DataDir() (string, error) {
	dir := c.Storage.DataDir
	if dir == "~" || strings.HasPrefix(dir, "~/") || strings.HasPrefix(dir, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, dir[1:])
	}
	return dir, nil
}

// Environment variables that override the file.
const (
	EnvRemoteDSN = "COINLEDGER_REMOTE_DSN"
	EnvUserID    = "COINLEDGER_USER_ID"
	EnvDataDir   = "COINLEDGER_DATA_DIR"
	EnvFallback  = "COINLEDGER_FALLBACK"
	EnvLogLevel  = "LOG_LEVEL"
	EnvAddr      = "COINLEDGER_ADDR"
)

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvRemoteDSN, &c.Storage.Remote.DSN)
	set(EnvUserID, &c.UserID)
	set(EnvDataDir, &c.Storage.DataDir)
	set(EnvFallback, &c.Storage.Fallback)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvAddr, &c.HTTP.Addr)
	return c.Validate()
}

// Resolve loads the config at path (defaults when missing), the .env file
// next to the working directory and the environment overrides.
func Resolve(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}
