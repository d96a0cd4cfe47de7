package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/triagedl/internal/domain/entities"
	"github.com/ochairo/triagedl/internal/domain/services"
)

// DefaultUserAgent is sent with every request. The upstream treats
// script-like user agents differently.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Config defines configuration for a download run.
type Config struct {
	BaseURL         string
	Domain          string
	CredentialsFile string
	DownloadDir     string
	Limit           int
	Workers         int
	ItemDelay       time.Duration
	Timeout         time.Duration
	MinSize         int64
	ChunkSize       int
	MaxRedirects    int
	Auth            AuthConfig
	Retry           RetryConfig
	Log             LogConfig
}

// AuthConfig selects how credentials are presented.
type AuthConfig struct {
	Scheme       entities.AuthScheme
	RequiredKeys []string
	UserAgent    string
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string
	Format string
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:         "https://tria.ge",
		Domain:          "tria.ge",
		CredentialsFile: "credentials.yaml",
		DownloadDir:     "downloads",
		Limit:           entities.DefaultSearchLimit,
		Workers:         1,
		ItemDelay:       100 * time.Millisecond,
		Timeout:         2 * time.Minute,
		MinSize:         1024,
		ChunkSize:       8 * 1024,
		MaxRedirects:    30,
		Auth: AuthConfig{
			Scheme:    entities.AuthSchemeCookie,
			UserAgent: DefaultUserAgent,
		},
		Retry: RetryConfig{
			Attempts:   services.DefaultMaxAttempts,
			Backoff:    services.DefaultBaseDelay,
			MaxBackoff: services.DefaultMaxDelay,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	BaseURL         string          `yaml:"base_url"`
	Domain          string          `yaml:"domain"`
	CredentialsFile string          `yaml:"credentials_file"`
	DownloadDir     string          `yaml:"download_dir"`
	Limit           int             `yaml:"limit"`
	Workers         int             `yaml:"workers"`
	ItemDelay       string          `yaml:"item_delay"`
	Timeout         string          `yaml:"timeout"`
	MinSize         int64           `yaml:"min_size"`
	ChunkSize       int             `yaml:"chunk_size"`
	MaxRedirects    int             `yaml:"max_redirects"`
	Auth            yamlAuthConfig  `yaml:"auth"`
	Retry           yamlRetryConfig `yaml:"retry"`
	Log             yamlLogConfig   `yaml:"log"`
}

type yamlAuthConfig struct {
	Scheme       string   `yaml:"scheme"`
	RequiredKeys []string `yaml:"required_keys"`
	UserAgent    string   `yaml:"user_agent"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

type yamlLogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadFromFile loads configuration from a YAML file on top of Default().
func LoadFromFile(path string) (Config, error) {
	//nolint:gosec // G304: path is the user-supplied config file
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.BaseURL != "" {
		cfg.BaseURL = yc.BaseURL
	}
	if yc.Domain != "" {
		cfg.Domain = yc.Domain
	}
	if yc.CredentialsFile != "" {
		cfg.CredentialsFile = yc.CredentialsFile
	}
	if yc.DownloadDir != "" {
		cfg.DownloadDir = yc.DownloadDir
	}
	if yc.Limit != 0 {
		cfg.Limit = yc.Limit
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.MinSize != 0 {
		cfg.MinSize = yc.MinSize
	}
	if yc.ChunkSize != 0 {
		cfg.ChunkSize = yc.ChunkSize
	}
	if yc.MaxRedirects != 0 {
		cfg.MaxRedirects = yc.MaxRedirects
	}
	if yc.Auth.Scheme != "" {
		cfg.Auth.Scheme = entities.AuthScheme(strings.ToLower(yc.Auth.Scheme))
	}
	if len(yc.Auth.RequiredKeys) > 0 {
		cfg.Auth.RequiredKeys = yc.Auth.RequiredKeys
	}
	if yc.Auth.UserAgent != "" {
		cfg.Auth.UserAgent = yc.Auth.UserAgent
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}
	if yc.Log.Format != "" {
		cfg.Log.Format = yc.Log.Format
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"item_delay", yc.ItemDelay, &cfg.ItemDelay},
		{"timeout", yc.Timeout, &cfg.Timeout},
		{"retry.backoff", yc.Retry.Backoff, &cfg.Retry.Backoff},
		{"retry.max_backoff", yc.Retry.MaxBackoff, &cfg.Retry.MaxBackoff},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TRIAGEDL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("TRIAGEDL_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("TRIAGEDL_DOMAIN"); v != "" {
		c.Domain = v
	}
	if v := os.Getenv("TRIAGEDL_CREDENTIALS_FILE"); v != "" {
		c.CredentialsFile = v
	}
	if v := os.Getenv("TRIAGEDL_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("TRIAGEDL_AUTH_SCHEME"); v != "" {
		c.Auth.Scheme = entities.AuthScheme(strings.ToLower(v))
	}
	if v := os.Getenv("TRIAGEDL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TRIAGEDL_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("TRIAGEDL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse TRIAGEDL_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("TRIAGEDL_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse TRIAGEDL_LIMIT: %w", err)
		}
		c.Limit = n
	}
	if v := os.Getenv("TRIAGEDL_ITEM_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse TRIAGEDL_ITEM_DELAY: %w", err)
		}
		c.ItemDelay = d
	}
	if v := os.Getenv("TRIAGEDL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse TRIAGEDL_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: base_url %q must be an absolute URL", c.BaseURL)
	}
	if c.Domain == "" {
		return errors.New("config: domain is required")
	}
	if c.CredentialsFile == "" {
		return errors.New("config: credentials_file is required")
	}
	if c.DownloadDir == "" {
		return errors.New("config: download_dir is required")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.ItemDelay < 0 {
		return errors.New("config: item_delay must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.MinSize <= 0 {
		return errors.New("config: min_size must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.MaxRedirects <= 0 {
		return errors.New("config: max_redirects must be positive")
	}
	if !c.Auth.Scheme.Valid() {
		return fmt.Errorf("config: unknown auth scheme %q", c.Auth.Scheme)
	}
	if c.Retry.Attempts <= 0 {
		return errors.New("config: retry.attempts must be positive")
	}
	if c.Retry.Backoff <= 0 || c.Retry.MaxBackoff <= 0 {
		return errors.New("config: retry backoff values must be positive")
	}
	if c.Retry.MaxBackoff < c.Retry.Backoff {
		return errors.New("config: retry.max_backoff must be >= retry.backoff")
	}
	return nil
}

// RequiredKeys returns the configured required credential names,
// falling back to the auth scheme's defaults.
func (c *Config) RequiredKeys() []string {
	if len(c.Auth.RequiredKeys) > 0 {
		return c.Auth.RequiredKeys
	}
	return c.Auth.Scheme.RequiredKeys()
}

// RetryPolicy returns the retry policy described by the config.
func (c *Config) RetryPolicy() services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: c.Retry.Attempts,
		BaseDelay:   c.Retry.Backoff,
		MaxDelay:    c.Retry.MaxBackoff,
	}
}
