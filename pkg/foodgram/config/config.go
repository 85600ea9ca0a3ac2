// Package config loads foodgram settings from defaults, an optional YAML file
// and environment variables, in that order of precedence (env wins).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location
const ConfigPathEnvVar = "FOODGRAM_CONFIG"

// EnvPrefix is stripped from environment variables before mapping them to keys
const EnvPrefix = "FOODGRAM_"

// DefaultConfigPaths are searched in order when FOODGRAM_CONFIG is not set
var DefaultConfigPaths = []string{
	"foodgram.yaml",
	"foodgram.yml",
	"/etc/foodgram/foodgram.yaml",
}

// Config is the complete application configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Media     MediaConfig     `koanf:"media"`
	PDF       PDFConfig       `koanf:"pdf"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	BaseURL         string        `koanf:"base_url" validate:"required,url"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
}

// DatabaseConfig holds the SQLite location
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"min=1m"`
}

// MediaConfig controls where uploaded recipe images are written and served from
type MediaConfig struct {
	Dir      string `koanf:"dir" validate:"required"`
	URLPath  string `koanf:"url_path" validate:"required,startswith=/"`
	MaxWidth int    `koanf:"max_width" validate:"min=1"`
}

// PDFConfig controls the shopping list document
type PDFConfig struct {
	FontPath string  `koanf:"font_path" validate:"required"`
	FontSize float64 `koanf:"font_size" validate:"gt=0"`
}

// APIConfig controls pagination
type APIConfig struct {
	PageSize    int `koanf:"page_size" validate:"min=1"`
	MaxPageSize int `koanf:"max_page_size" validate:"gtefield=PageSize"`
}

// LoggingConfig controls the zerolog output
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// CORSConfig lists allowed origins
type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

// RateLimitConfig limits token login attempts per client
type RateLimitConfig struct {
	LoginRequests int           `koanf:"login_requests" validate:"min=1"`
	LoginWindow   time.Duration `koanf:"login_window" validate:"min=1s"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			BaseURL:         "http://localhost:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "foodgram.db"},
		Auth: AuthConfig{
			// Development only, override FOODGRAM_AUTH_JWT_SECRET in production
			JWTSecret: "foodgram-dev-secret-change-in-production",
			TokenTTL:  24 * time.Hour,
		},
		Media: MediaConfig{
			Dir:      "media",
			URLPath:  "/media",
			MaxWidth: 1280,
		},
		PDF: PDFConfig{
			FontPath: "static/fonts/DejaVuSerif.ttf",
			FontSize: 14,
		},
		API: APIConfig{PageSize: 6, MaxPageSize: 100},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{Origins: []string{"*"}},
		RateLimit: RateLimitConfig{
			LoginRequests: 10,
			LoginWindow:   time.Minute,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file, then env vars.
// A .env file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// FOODGRAM_SERVER_PORT -> server.port
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaList(k, "cors.origins"); err != nil {
		return nil, err
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

// Validate checks the struct tags on every section
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// DSN returns the SQLite data source name
func (c *Config) DSN() string {
	return c.Database.Path
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sections are the top-level keys; the first underscore after one of them
// separates the section from the field name.
var sections = []string{"server", "database", "auth", "media", "pdf", "api", "logging", "cors", "rate_limit"}

func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, s := range sections {
		if strings.HasPrefix(key, s+"_") {
			return s + "." + strings.TrimPrefix(key, s+"_")
		}
	}
	return key
}

// splitCommaList turns "a, b" env values into a list for slice fields
func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}
