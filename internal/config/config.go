package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr      string `env:"NEUROSIM_LISTEN_ADDR" envDefault:":8080"`
	DBPath          string `env:"NEUROSIM_DB_PATH" envDefault:"neurosim.db"`
	LogLevel        string `env:"NEUROSIM_LOG_LEVEL" envDefault:"info"`
	DefaultTimeoutS int    `env:"NEUROSIM_DEFAULT_TIMEOUT_S" envDefault:"3600"`
	MaxConcurrent   int    `env:"NEUROSIM_MAX_CONCURRENT" envDefault:"4"`
}

// Load reads configuration from the environment, loading a .env file first
// if one exists.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DefaultTimeoutS <= 0 {
		return cfg, fmt.Errorf("NEUROSIM_DEFAULT_TIMEOUT_S must be positive, got %d", cfg.DefaultTimeoutS)
	}
	if cfg.MaxConcurrent <= 0 {
		return cfg, fmt.Errorf("NEUROSIM_MAX_CONCURRENT must be positive, got %d", cfg.MaxConcurrent)
	}

	return cfg, nil
}

// Level translates the configured log level name into a slog.Level.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
