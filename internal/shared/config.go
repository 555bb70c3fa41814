package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Client   ClientConfig   `toml:"client"`
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Batch    BatchConfig    `toml:"batch"`
}

// ClientConfig contains session client settings.
type ClientConfig struct {
	BaseURL          string      `toml:"base_url"`
	SendCredentials  bool        `toml:"send_credentials"`
	Timeout          Duration    `toml:"timeout"`
	LoginURL         string      `toml:"login_url"`
	OpenBrowser      bool        `toml:"open_browser"`
	DisguisedAuth    string      `toml:"disguised_auth"`
	TerminalStatuses []int       `toml:"terminal_statuses"`
	UserAgent        string      `toml:"user_agent"`
	Paths            PathsConfig `toml:"paths"`
}

// PathsConfig names the backend auth endpoints.
type PathsConfig struct {
	Refresh string `toml:"refresh"`
	Me      string `toml:"me"`
	Logout  string `toml:"logout"`
	Login   string `toml:"login"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CacheConfig selects where the local profile cache lives.
type CacheConfig struct {
	Backend     string   `toml:"backend"`
	RedisAddr   string   `toml:"redis_addr"`
	RedisPrefix string   `toml:"redis_prefix"`
	TTL         Duration `toml:"ttl"`
}

// ServerConfig contains mock backend settings.
type ServerConfig struct {
	Host       string   `toml:"host"`
	Port       int      `toml:"port"`
	SessionTTL Duration `toml:"session_ttl"`
	RefreshTTL Duration `toml:"refresh_ttl"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// BatchConfig paces the api batch command.
type BatchConfig struct {
	Concurrency int     `toml:"concurrency"`
	RateLimit   float64 `toml:"rate_limit"`
}

// Duration is a [time.Duration] that decodes from TOML strings like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrInvalidConfig, text)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the fields the session client cannot work without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: client.base_url %q is not an absolute URL", ErrInvalidConfig, c.Client.BaseURL)
	}

	switch c.Client.DisguisedAuth {
	case "redirect", "refresh":
	default:
		return fmt.Errorf("%w: client.disguised_auth must be redirect or refresh, got %q", ErrInvalidConfig, c.Client.DisguisedAuth)
	}

	if c.Client.Paths.Refresh == "" || c.Client.Paths.Me == "" || c.Client.Paths.Logout == "" {
		return fmt.Errorf("%w: client.paths refresh, me and logout are required", ErrInvalidConfig)
	}

	for _, status := range c.Client.TerminalStatuses {
		if status < 400 || status > 599 {
			return fmt.Errorf("%w: terminal status %d is not an error status", ErrInvalidConfig, status)
		}
	}

	switch c.Cache.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("%w: cache.backend must be sqlite or redis, got %q", ErrInvalidConfig, c.Cache.Backend)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
