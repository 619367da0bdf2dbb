// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize is the default maximum request body size (64KB).
	DefaultMaxRequestSize = 64 << 10

	// DefaultRequestTimeout bounds API requests, including long-polling session reads.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultTransitionDelay is the simulated login/logout latency.
	DefaultTransitionDelay = 2 * time.Second

	// DefaultVisitorIdleTTL is how long an idle visitor is kept in memory.
	DefaultVisitorIdleTTL = 30 * time.Minute

	// DefaultEvictionInterval is how often idle visitors are swept.
	DefaultEvictionInterval = time.Minute

	// DefaultMaxVisitors bounds the visitors held in memory at once.
	DefaultMaxVisitors = 10000

	// DefaultCookieName is the session cookie name.
	DefaultCookieName = "quotedesk_session"

	// DefaultCookieMaxAge is the session cookie lifetime in seconds (1 day).
	DefaultCookieMaxAge = 86400

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28
)

// devCookieSecret signs cookies when none is configured. Only accepted
// outside prod, see Validate.
const devCookieSecret = "quotedesk-local-dev-cookie-secret"

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Session   SessionConfig   `koanf:"session"   validate:"required"`
	Quotes    QuotesConfig    `koanf:"quotes"`
	CORS      CORSConfig      `koanf:"cors"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,hostname_port"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// SessionConfig contains the login toggle and visitor cookie settings.
type SessionConfig struct {
	TransitionDelay  time.Duration `koanf:"transition_delay"  validate:"required,min=1ms"`
	IdleTTL          time.Duration `koanf:"idle_ttl"          validate:"required,min=1s"`
	EvictionInterval time.Duration `koanf:"eviction_interval" validate:"required,min=1s"`
	MaxVisitors      int           `koanf:"max_visitors"      validate:"required,min=1"`
	CookieName       string        `koanf:"cookie_name"       validate:"required"`
	CookieSecret     string        `koanf:"cookie_secret"     validate:"required,min=16"`
	CookieMaxAge     int           `koanf:"cookie_max_age"    validate:"min=0"`
	CookieSecure     bool          `koanf:"cookie_secure"`
}

// QuotesConfig contains catalog settings.
type QuotesConfig struct {
	// CatalogPath points at a YAML quote catalog. Empty uses the built-in one.
	CatalogPath string `koanf:"catalog_path" validate:"omitempty,filepath"`
}

// CORSConfig contains cross-origin settings for the JSON API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins" validate:"dive,url"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quotedesk",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "15s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quotedesk.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "quotedesk",
		"telemetry.sampling_rate": 1.0,

		"session.transition_delay":  "2s",
		"session.idle_ttl":          "30m",
		"session.eviction_interval": "1m",
		"session.max_visitors":      DefaultMaxVisitors,
		"session.cookie_name":       DefaultCookieName,
		"session.cookie_secret":     devCookieSecret,
		"session.cookie_max_age":    DefaultCookieMaxAge,
		"session.cookie_secure":     false,

		"quotes.catalog_path": "",

		"cors.allowed_origins": []string{},
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
func Load(profile string) (*Config, error) {
	return LoadFrom("configs", profile)
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, dir+"/base.yaml"); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := loadFileIfExists(k, fmt.Sprintf("%s/%s.yaml", dir, profile)); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	err := k.Load(env.ProviderWithValue("APP_", ".", envValue), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKey maps APP_SESSION_IDLE_TTL to session.idle_ttl. The first
// underscore after the prefix separates the section from the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "APP_"))

	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}

	if section == "log" && strings.HasPrefix(rest, "file_") {
		return "log.file." + strings.TrimPrefix(rest, "file_")
	}

	return section + "." + rest
}

// envValue maps an APP_* variable to its koanf key. List values are
// comma separated.
func envValue(name, value string) (string, any) {
	key := envKey(name)

	if key == "cors.allowed_origins" {
		origins := make([]string, 0)

		for origin := range strings.SplitSeq(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}

		return key, origins
	}

	return key, value
}

// loadFileIfExists loads a YAML config file if it exists.
// Returns nil if the file doesn't exist, error only for parse/read failures.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
