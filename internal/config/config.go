// ABOUTME: Configuration loading and parsing for the wishlist gateway
// ABOUTME: YAML files with ${VAR} expansion, WISHLIST_* environment overrides and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete wishlist gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	API       APIConfig       `yaml:"api"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" env:"WISHLIST_HTTP_ADDR"`
	// BaseURL is the external URL used in OAuth metadata. Derived from the
	// request when empty.
	BaseURL string `yaml:"base_url" env:"WISHLIST_BASE_URL"`

	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key" env:"WISHLIST_TS_AUTHKEY"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" env:"WISHLIST_DB_PATH"`
}

// AuthConfig holds the static credentials of the single owner
type AuthConfig struct {
	// APIToken is accepted as a bearer token on /mcp (and /api when
	// api.require_auth is set).
	APIToken string `yaml:"api_token" env:"WISHLIST_API_TOKEN"`
	// ApprovePassword must be entered on the consent page.
	ApprovePassword string `yaml:"approve_password" env:"WISHLIST_APPROVE_PASSWORD"`
	// AllowPasswordless permits consent without a password when
	// ApprovePassword is empty. Only safe behind a private network.
	AllowPasswordless bool `yaml:"allow_passwordless"`
	// JWTSecret signs OAuth access tokens. OAuth is disabled when empty.
	JWTSecret string `yaml:"jwt_secret" env:"WISHLIST_JWT_SECRET"`
}

// OAuthConfig holds OAuth grant settings
type OAuthConfig struct {
	AllowedRedirectHosts []string `yaml:"allowed_redirect_hosts"`
	Scopes               []string `yaml:"scopes"`
	// RedisURL moves authorization codes and refresh tokens to Redis.
	RedisURL     string `yaml:"redis_url" env:"WISHLIST_REDIS_URL"`
	FailureBurst int    `yaml:"failure_burst"`

	AccessTokenTTL  time.Duration `yaml:"-"`
	RefreshTokenTTL time.Duration `yaml:"-"`
	CodeTTL         time.Duration `yaml:"-"`
	FailureInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	AccessTokenTTLRaw  string `yaml:"access_token_ttl"`
	RefreshTokenTTLRaw string `yaml:"refresh_token_ttl"`
	CodeTTLRaw         string `yaml:"code_ttl"`
	FailureIntervalRaw string `yaml:"failure_interval"`
}

// APIConfig holds REST API settings
type APIConfig struct {
	RequireAuth bool `yaml:"require_auth"`
}

// CORSConfig holds the origins allowed to call /api
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" env:"WISHLIST_LOG_LEVEL"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: "127.0.0.1:8787", ShutdownTimeout: 5 * time.Second},
		Database: DatabaseConfig{Path: defaultDBPath()},
		CORS:     CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Metrics:  MetricsConfig{Path: "/metrics"},
	}
}

// DefaultPath returns the config file location: WISHLIST_CONFIG, then
// $XDG_CONFIG_HOME/wishlist/config.yaml, then ~/.config/wishlist/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("WISHLIST_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(configHome(), "wishlist", "config.yaml")
}

func configHome() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

func defaultDBPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "wishlist", "wishlist.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "wishlist.db"
	}
	return filepath.Join(home, ".local", "share", "wishlist", "wishlist.db")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded, then
// WISHLIST_* variables override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return parse(data)
}

// LoadDefault loads DefaultPath. A missing file is not an error: defaults
// plus environment overrides are used instead.
func LoadDefault() (*Config, string, error) {
	path := DefaultPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err := parse(nil)
		return cfg, "", err
	}
	if err != nil {
		return nil, path, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := parse(data)
	return cfg, path, err
}

func parse(data []byte) (*Config, error) {
	cfg := Default()

	if len(data) > 0 {
		// Expand environment variables in the raw YAML content
		expandedData := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("server.base_url must be an absolute http(s) URL")
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	if c.OAuth.FailureBurst < 0 {
		return fmt.Errorf("oauth.failure_burst must not be negative")
	}

	if c.Logging.Level != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}

// OAuthEnabled reports whether the authorization server endpoints are served.
func (c *Config) OAuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"oauth.access_token_ttl", cfg.OAuth.AccessTokenTTLRaw, &cfg.OAuth.AccessTokenTTL},
		{"oauth.refresh_token_ttl", cfg.OAuth.RefreshTokenTTLRaw, &cfg.OAuth.RefreshTokenTTL},
		{"oauth.code_ttl", cfg.OAuth.CodeTTLRaw, &cfg.OAuth.CodeTTL},
		{"oauth.failure_interval", cfg.OAuth.FailureIntervalRaw, &cfg.OAuth.FailureInterval},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %q", f.name, f.raw)
		}
		*f.dst = d
	}
	return nil
}
