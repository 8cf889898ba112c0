// Package config loads service configuration and opens the database.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, then PUCEATS_* environment variables (a .env file in the working
// directory is read into the environment first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes environment overrides: PUCEATS_DB_DSN -> db.dsn
const EnvPrefix = "PUCEATS_"

const defaultSecret = "puceats_dev_secret_change_me"

type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	DB        DBConfig        `koanf:"db"`
	Auth      AuthConfig      `koanf:"auth"`
	Tokens    TokenConfig     `koanf:"tokens"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
	Admin     AdminConfig     `koanf:"admin"`
	CORS      CORSConfig      `koanf:"cors"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
	Mode string `koanf:"mode"` // gin mode: debug, release, test
}

type DBConfig struct {
	Driver string `koanf:"driver"` // sqlite or postgres
	DSN    string `koanf:"dsn"`
}

type AuthConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

type TokenConfig struct {
	// Validity is the default lifetime of an invitation token in days.
	Validity int `koanf:"validity"`
}

type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AdminConfig seeds the first admin account when both fields are set.
type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTP:      HTTPConfig{Addr: ":8080", Mode: "debug"},
		DB:        DBConfig{Driver: "sqlite", DSN: "puceats.db"},
		Auth:      AuthConfig{Secret: defaultSecret, TTL: 24 * time.Hour},
		Tokens:    TokenConfig{Validity: 30},
		RateLimit: RateLimitConfig{RPS: 2, Burst: 10},
		Log:       LogConfig{Level: "info", Format: "text"},
		CORS:      CORSConfig{Origins: []string{"*"}},
	}
}

// Load reads configuration from path (may be empty) and the environment.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	transform := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Plain PORT / JWT_SECRET / GIN_MODE keep working for container platforms
	if port := getEnv("PORT", ""); port != "" {
		cfg.HTTP.Addr = ":" + port
	}
	cfg.Auth.Secret = getEnv("JWT_SECRET", cfg.Auth.Secret)
	cfg.HTTP.Mode = getEnv("GIN_MODE", cfg.HTTP.Mode)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("db.driver must be sqlite or postgres, got %q", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("db.dsn is required"))
	}
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	if c.Auth.TTL <= 0 {
		errs = append(errs, errors.New("auth.ttl must be positive"))
	}
	if c.Tokens.Validity <= 0 {
		errs = append(errs, errors.New("tokens.validity must be positive"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("ratelimit.rps and ratelimit.burst must be positive"))
	}
	return errors.Join(errs...)
}

// UsesDefaultSecret reports whether the signing secret was never configured.
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.Secret == defaultSecret
}
