package config

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "closencelections"

const (
	defaultRefresh = time.Hour
	defaultTimeout = 30 * time.Second
)

// Defaults are the report flags used when the command line leaves them unset.
type Defaults struct {
	Limit  int    `yaml:"limit" validate:"gte=0"`
	Method string `yaml:"method" validate:"omitempty,oneof=percentage votes"`
	Format string `yaml:"format" validate:"omitempty,oneof=html csv"`
	Output string `yaml:"output"`
}

type Config struct {
	BaseURL           string   `yaml:"base_url" validate:"required,url"`
	RefreshInterval   string   `yaml:"refresh_interval"`
	RequestTimeout    string   `yaml:"request_timeout,omitempty"`
	RequestsPerSecond float64  `yaml:"requests_per_second,omitempty" validate:"gte=0"`
	UserAgent         string   `yaml:"user_agent,omitempty"`
	CacheDir          string   `yaml:"cache_dir,omitempty"`
	Defaults          Defaults `yaml:"defaults"`
}

func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return defaultRefresh
	}
	return d
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// CachePath is the directory holding downloaded feeds.
func (c *Config) CachePath() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return DefaultCacheDir()
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, appName)
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Write defaults to config path on first run; failure is non-fatal.
			_ = writeDefaults(path)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(&cfg, defaults)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills every unset field of cfg from defaults.
func applyDefaults(cfg, defaults *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.RefreshInterval == "" {
		cfg.RefreshInterval = defaults.RefreshInterval
	}
	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Defaults.Limit == 0 {
		cfg.Defaults.Limit = defaults.Defaults.Limit
	}
	if cfg.Defaults.Method == "" {
		cfg.Defaults.Method = defaults.Defaults.Method
	}
	if cfg.Defaults.Format == "" {
		cfg.Defaults.Format = defaults.Defaults.Format
	}
	if cfg.Defaults.Output == "" {
		cfg.Defaults.Output = defaults.Defaults.Output
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

var structValidator = validator.New()

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", u.Scheme)
	}
	if cfg.RefreshInterval != "" {
		if _, err := time.ParseDuration(cfg.RefreshInterval); err != nil {
			return fmt.Errorf("refresh_interval: %w", err)
		}
	}
	return nil
}
