// Package config loads the browse and proxy configuration. Values are
// layered: built-in defaults, then an optional YAML file, then environment
// variables prefixed with ANIME_. A .env file in the working directory is
// read into the environment first.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/RaY8118/anime-recommendation/pkg/browse"
	"github.com/RaY8118/anime-recommendation/pkg/logging"
	"github.com/RaY8118/anime-recommendation/pkg/pagination"
	"github.com/RaY8118/anime-recommendation/pkg/window"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables read by Load. The first segment
// after the prefix names the section: ANIME_CATALOG_BASE_URL sets
// catalog.base_url.
const EnvPrefix = "ANIME_"

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "ANIME_CONFIG"

// DefaultConfigPaths lists the config files searched, in order.
var DefaultConfigPaths = []string{
	"anime.yaml",
	"anime.yml",
	"config/anime.yaml",
}

// Config is the complete application configuration.
type Config struct {
	Catalog   CatalogConfig   `koanf:"catalog"`
	Browse    BrowseConfig    `koanf:"browse"`
	Cache     CacheConfig     `koanf:"cache"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Logging   LoggingConfig   `koanf:"logging"`
	Proxy     ProxyConfig     `koanf:"proxy"`
}

// CatalogConfig points at the catalog API.
type CatalogConfig struct {
	BaseURL          string        `koanf:"base_url" validate:"required,url"`
	UserAgent        string        `koanf:"user_agent" validate:"required"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	BreakerThreshold uint32        `koanf:"breaker_threshold" validate:"min=1"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// BrowseConfig shapes the paginated browse view.
type BrowseConfig struct {
	DisplaySize    int           `koanf:"display_size" validate:"min=1,max=100"`
	ChunksPerFetch int           `koanf:"chunks_per_fetch" validate:"min=1,max=20"`
	DebounceDelay  time.Duration `koanf:"debounce_delay" validate:"gte=0"`
	FetchTimeout   time.Duration `koanf:"fetch_timeout" validate:"gt=0"`

	// WarmChunks is how many chunks the proxy prefetches for the unfiltered
	// listing at startup. Zero disables warming.
	WarmChunks int `koanf:"warm_chunks" validate:"gte=0"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	// Backend is "redis", "badger" or "none".
	Backend          string        `koanf:"backend" validate:"oneof=redis badger none"`
	Dir              string        `koanf:"dir"`
	RevalidateWindow time.Duration `koanf:"revalidate_window" validate:"gte=0"`
}

// RedisConfig is the shared Redis connection.
type RedisConfig struct {
	Addr     string `koanf:"addr" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

// RateLimitConfig bounds outgoing catalog requests.
type RateLimitConfig struct {
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"min=1"`
	MaxWait           time.Duration `koanf:"max_wait" validate:"gt=0"`
	ThrottleDelay     time.Duration `koanf:"throttle_delay" validate:"gte=0"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `koanf:"pretty"`

	// File receives log output instead of stderr when set.
	File string `koanf:"file"`
}

// ProxyConfig configures the catalog gateway.
type ProxyConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"min=1"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:          "http://localhost:8000",
			UserAgent:        "anime-browse/1.0",
			Timeout:          10 * time.Second,
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Browse: BrowseConfig{
			DisplaySize:    12,
			ChunksPerFetch: 3,
			DebounceDelay:  time.Second,
			FetchTimeout:   15 * time.Second,
		},
		Cache: CacheConfig{
			Backend:          "badger",
			Dir:              "",
			RevalidateWindow: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
			MaxWait:           30 * time.Second,
			ThrottleDelay:     500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Proxy: ProxyConfig{
			Addr:              ":8080",
			RequestsPerMinute: 120,
			RequestTimeout:    30 * time.Second,
		},
	}
}

// Load reads the configuration. path names a YAML file; when empty the
// ANIME_CONFIG variable and DefaultConfigPaths are searched and a missing
// file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps ANIME_SECTION_KEY_NAME to section.key_name.
// Variables without a section are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" || section == "config" {
		return ""
	}
	return section + "." + rest
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks every section.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Geometry returns the browse window geometry.
func (c *Config) Geometry() window.Geometry {
	return window.Geometry{DisplaySize: c.Browse.DisplaySize, ChunksPerFetch: c.Browse.ChunksPerFetch}
}

// Pagination returns the pagination controller settings.
func (c *Config) Pagination() pagination.Config {
	return pagination.Config{Geometry: c.Geometry(), FetchTimeout: c.Browse.FetchTimeout}
}

// Session returns the browse session settings.
func (c *Config) Session() browse.Config {
	return browse.Config{Pagination: c.Pagination(), DebounceDelay: c.Browse.DebounceDelay}
}

// LogConfig returns the logger settings, writing to output unless a log
// file is configured.
func (c *Config) LogConfig(output io.Writer) logging.Config {
	return logging.Config{
		Level:  logging.LogLevel(c.Logging.Level),
		Pretty: c.Logging.Pretty,
		Output: output,
		File:   c.Logging.File,
	}
}
