// Package config holds the runtime settings for the outfit server.
//
// Values arrive from CLI flags, which fall back to environment variables
// (and a .env file loaded at startup). Default() supplies the baseline and
// Validate() rejects combinations the server cannot run with.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JuampiHernandez/raave-outfit/internal/auth"
	"github.com/JuampiHernandez/raave-outfit/internal/avatar"
	"github.com/JuampiHernandez/raave-outfit/internal/imagegen"
	"github.com/JuampiHernandez/raave-outfit/internal/service"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is everything the server needs to start.
type Config struct {
	Port int

	// Storage
	StoreDriver   string
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Image editing
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	EditTimeout       time.Duration
	DedupeGenerations bool

	// Avatar resolution
	ProbeTimeout    time.Duration
	PlaceholderSize int64
	TalentAPIKey    string
	GitHubToken     string

	// Admin
	AdminPasswordHash string
	JWTSecret         string
	TokenTTL          time.Duration

	// PublicURL is the frontend origin share pages redirect to.
	PublicURL string

	LogLevel  string
	LogFormat string
}

// Default returns a config that runs locally against a sqlite file. The
// Gemini key has no default.
func Default() Config {
	return Config{
		Port:            8080,
		StoreDriver:     DriverSQLite,
		SQLitePath:      "data/raave.db",
		RedisAddr:       "localhost:6379",
		GeminiModel:     imagegen.DefaultGeminiModel,
		GeminiBaseURL:   imagegen.DefaultGeminiBaseURL,
		EditTimeout:     service.DefaultEditTimeout,
		ProbeTimeout:    avatar.DefaultProbeTimeout,
		PlaceholderSize: avatar.DefaultPlaceholderSize,
		TokenTTL:        auth.DefaultTokenTTL,
		PublicURL:       "http://localhost:3000",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("sqlite path is required"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres DSN is required for the postgres store"))
		}
	case DriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("redis address is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q (want sqlite, postgres or redis)", c.StoreDriver))
	}

	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		errs = append(errs, errors.New("Gemini API key is required"))
	}
	if c.EditTimeout <= 0 {
		errs = append(errs, errors.New("edit timeout must be positive"))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("probe timeout must be positive"))
	}
	if c.PlaceholderSize < 0 {
		errs = append(errs, errors.New("placeholder size must not be negative"))
	}

	if c.AdminPasswordHash != "" {
		if err := auth.CheckHash(c.AdminPasswordHash); err != nil {
			errs = append(errs, fmt.Errorf("admin password hash: %w", err))
		}
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT secret must be at least %d characters", auth.MinSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat))
	}

	return errors.Join(errs...)
}

// AdminEnabled reports whether the admin routes can be mounted.
func (c Config) AdminEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}

// ParseLevel maps debug|info|warn|error onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
