package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Environment       string `env:"APP_ENV" envDefault:"development"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	SourcesConfigFile string `env:"SOURCES_CONFIG_FILE"`

	Server    ServerConfig    `envPrefix:"SERVER_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Cache     CacheConfig     `envPrefix:"CACHE_"`
	CORS      CORSConfig      `envPrefix:"CORS_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	OTEL      OTELConfig      `envPrefix:"OTEL_"`
	Sources   SourcesConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"45s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// CacheConfig controls the in-process fallback cache and taxonomy TTL
type CacheConfig struct {
	CategoryTTL time.Duration `env:"CATEGORY_TTL" envDefault:"24h"`
	MemorySize  int           `env:"MEMORY_SIZE" envDefault:"256"`
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// RateLimitConfig holds the inbound per-client limit
type RateLimitConfig struct {
	Enabled           bool     `env:"ENABLED" envDefault:"true"`
	RequestsPerSecond float64  `env:"RPS" envDefault:"10"`
	Burst             int      `env:"BURST" envDefault:"20"`
	TrustedProxies    []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `env:"SERVICE_NAME" envDefault:"local-event-finder"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	Endpoint       string `env:"ENDPOINT"`
	Enabled        bool   `env:"ENABLED" envDefault:"false"`
	// SampleRatio is the share of root traces exported, 0 to 1
	SampleRatio float64 `env:"SAMPLE_RATIO" envDefault:"1"`
}

// SourcesConfig holds one block per event provider
type SourcesConfig struct {
	Ticketmaster  SourceConfig `envPrefix:"TICKETMASTER_"`
	Eventbrite    SourceConfig `envPrefix:"EVENTBRITE_"`
	OpenStreetMap SourceConfig `envPrefix:"OSM_"`
}

// SourceConfig configures a single provider adapter
type SourceConfig struct {
	Enabled       bool              `env:"ENABLED"`
	APIKey        string            `env:"API_KEY"`
	BaseURL       string            `env:"BASE_URL"`
	Timeout       time.Duration     `env:"TIMEOUT"`
	RatePerSecond float64           `env:"RATE_PER_SECOND"`
	Burst         int               `env:"BURST"`
	Categories    map[string]string `env:"CATEGORIES"`
}

// sourcesFile is the shape of SOURCES_CONFIG_FILE. Pointer fields distinguish
// "not set" from zero values so the overlay only touches what it names.
type sourcesFile struct {
	Sources map[string]sourceOverlay `yaml:"sources"`
}

type sourceOverlay struct {
	Enabled       *bool             `yaml:"enabled"`
	BaseURL       *string           `yaml:"base_url"`
	Timeout       *time.Duration    `yaml:"timeout"`
	RatePerSecond *float64          `yaml:"rate_per_second"`
	Burst         *int              `yaml:"burst"`
	Categories    map[string]string `yaml:"categories"`
}

// Defaults returns the configuration used before the environment is applied.
func Defaults() Config {
	return Config{
		Sources: SourcesConfig{
			Ticketmaster: SourceConfig{
				Enabled:       true,
				BaseURL:       "https://app.ticketmaster.com/discovery/v2",
				Timeout:       10 * time.Second,
				RatePerSecond: 5,
				Burst:         5,
			},
			Eventbrite: SourceConfig{
				Enabled:       true,
				BaseURL:       "https://www.eventbriteapi.com/v3",
				Timeout:       10 * time.Second,
				RatePerSecond: 5,
				Burst:         5,
			},
			OpenStreetMap: SourceConfig{
				Enabled:       true,
				BaseURL:       "https://overpass-api.de/api/interpreter",
				Timeout:       30 * time.Second,
				RatePerSecond: 1,
				Burst:         2,
			},
		},
	}
}

// Load loads configuration from .env, environment variables and the optional
// sources overlay file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.SourcesConfigFile != "" {
		if err := cfg.applySourcesFile(cfg.SourcesConfigFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env parsing cannot express
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	for name, src := range c.Sources.byName() {
		if src.Enabled && src.BaseURL == "" {
			return fmt.Errorf("source %s is enabled without a base URL", name)
		}
		if src.Timeout <= 0 {
			return fmt.Errorf("source %s has a non-positive timeout", name)
		}
	}
	if c.OTEL.Enabled && c.OTEL.Endpoint == "" {
		return fmt.Errorf("OTEL_ENABLED requires OTEL_ENDPOINT")
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1, got %g", c.OTEL.SampleRatio)
	}
	return nil
}

func (c *Config) applySourcesFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sources config %s: %w", path, err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse sources config %s: %w", path, err)
	}

	targets := c.Sources.byName()
	for name, overlay := range file.Sources {
		target, ok := targets[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("sources config %s: unknown source %q", path, name)
		}
		overlay.applyTo(target)
	}
	return nil
}

func (o sourceOverlay) applyTo(target *SourceConfig) {
	if o.Enabled != nil {
		target.Enabled = *o.Enabled
	}
	if o.BaseURL != nil {
		target.BaseURL = *o.BaseURL
	}
	if o.Timeout != nil {
		target.Timeout = *o.Timeout
	}
	if o.RatePerSecond != nil {
		target.RatePerSecond = *o.RatePerSecond
	}
	if o.Burst != nil {
		target.Burst = *o.Burst
	}
	if len(o.Categories) > 0 {
		if target.Categories == nil {
			target.Categories = make(map[string]string, len(o.Categories))
		}
		for k, v := range o.Categories {
			target.Categories[k] = v
		}
	}
}

func (s *SourcesConfig) byName() map[string]*SourceConfig {
	return map[string]*SourceConfig{
		"ticketmaster":  &s.Ticketmaster,
		"eventbrite":    &s.Eventbrite,
		"openstreetmap": &s.OpenStreetMap,
	}
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
