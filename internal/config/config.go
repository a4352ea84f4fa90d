// Package config loads process configuration with layered sources: built-in
// defaults, then an optional YAML file, then environment variables. This is
// deployment configuration only; the admin-mutable access policy lives in
// the store, not here.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment overrides:
// GEOCRYPT_SERVER_LISTEN -> server.listen.
const envPrefix = "GEOCRYPT_"

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Security SecurityConfig `koanf:"security"`
	Admin    AdminConfig    `koanf:"admin"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Listen          string        `koanf:"listen"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds the embedded database location.
type StoreConfig struct {
	Dir string `koanf:"dir"`
}

// SecurityConfig holds session token settings. JWTSecret has no default; an
// empty value fails startup.
type SecurityConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	SessionTTL time.Duration `koanf:"session_ttl"`
}

// AdminConfig seeds the bootstrap administrator account on first start.
type AdminConfig struct {
	Username string `koanf:"username"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

// SMTPConfig configures OTP mail delivery. With an empty host, OTP codes are
// logged instead of mailed (local development).
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Dir: "data",
		},
		Security: SecurityConfig{
			JWTSecret:  "",
			SessionTTL: 24 * time.Hour,
		},
		Admin: AdminConfig{
			Username: "admin",
			Email:    "admin@localhost",
			Password: "",
		},
		SMTP: SMTPConfig{
			Host: "",
			Port: 587,
			From: "geocrypt@localhost",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if it
// exists; an empty path skips the file layer) and GEOCRYPT_* environment
// variables, in increasing priority.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required (set GEOCRYPT_SECURITY_JWT_SECRET)")
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("admin.password is required (set GEOCRYPT_ADMIN_PASSWORD)")
	}
	return nil
}
