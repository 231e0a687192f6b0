package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Values are read once at process start; environment variables override the file (see [Config.ApplyEnv]).
type Config struct {
	Tidal    TidalConfig    `toml:"tidal"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
}

// TidalConfig contains the Tidal application credentials and endpoints.
type TidalConfig struct {
	ClientID       string  `toml:"client_id"`
	ClientSecret   string  `toml:"client_secret"`
	RedirectURI    string  `toml:"redirect_uri"`
	AuthorizeURL   string  `toml:"authorize_url"`
	TokenURL       string  `toml:"token_url"`
	Scopes         string  `toml:"scopes"`
	APIBaseURL     string  `toml:"api_base_url"`
	CountryCode    string  `toml:"country_code"`
	RequestTimeout int     `toml:"request_timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

// Timeout returns the per-request timeout, defaulting to 10 seconds.
func (c TidalConfig) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	DefaultUser    string `toml:"default_user"`
	SessionTTL     int    `toml:"session_ttl_minutes"`
	PendingTTL     int    `toml:"pending_login_ttl_minutes"`
	SecureCookies  bool   `toml:"secure_cookies"`
	ShutdownWindow int    `toml:"shutdown_seconds"`
}

// Addr returns host:port for [net/http.Server].
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
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

// LoadDotEnv loads KEY=value pairs from the given .env files into the process environment.
//
// Missing files are skipped and variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat env file %s: %w", p, err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from environment variables found by lookup (usually [os.LookupEnv]).
//
// TIDAL_AUTH carries the token url.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TIDAL_CLIENT_ID":        &c.Tidal.ClientID,
		"TIDAL_CLIENT_SECRET":    &c.Tidal.ClientSecret,
		"TIDAL_REDIRECT_URI":     &c.Tidal.RedirectURI,
		"TIDAL_AUTHORIZE_URL":    &c.Tidal.AuthorizeURL,
		"TIDAL_AUTH":             &c.Tidal.TokenURL,
		"TIDAL_SCOPES":           &c.Tidal.Scopes,
		"TIDAL_API_BASE_URL":     &c.Tidal.APIBaseURL,
		"TIDAL_COUNTRY_CODE":     &c.Tidal.CountryCode,
		"HARMONIQ_DATABASE_PATH": &c.Database.Path,
		"HARMONIQ_HOST":          &c.Server.Host,
		"HARMONIQ_DEFAULT_USER":  &c.Server.DefaultUser,
		"HARMONIQ_LOG_LEVEL":     &c.Logging.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("HARMONIQ_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%w: HARMONIQ_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	return nil
}

// Validate reports the Tidal settings required to run the authorization flow that are missing.
func (c *Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"tidal.client_id":     c.Tidal.ClientID,
		"tidal.client_secret": c.Tidal.ClientSecret,
		"tidal.redirect_uri":  c.Tidal.RedirectURI,
		"tidal.authorize_url": c.Tidal.AuthorizeURL,
		"tidal.token_url":     c.Tidal.TokenURL,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}
