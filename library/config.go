package library

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Defaults used when neither the environment nor flags say otherwise.
const (
	DefaultDBPath   = "library.db"
	DefaultLoanDays = 14
	DefaultLogLevel = "warn"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvDBPath   = "LIBRARY_DB"
	EnvLoanDays = "LIBRARY_LOAN_DAYS"
	EnvLogLevel = "LIBRARY_LOG_LEVEL"
)

// Config holds everything needed to open a LibraryManager.
type Config struct {
	DBPath   string
	LoanDays int
	LogLevel string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DBPath:   DefaultDBPath,
		LoanDays: DefaultLoanDays,
		LogLevel: DefaultLogLevel,
	}
}

// ConfigFromEnv applies LIBRARY_* variables on top of the defaults. It only
// fails on values it cannot parse; call Validate once flags are applied.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLoanDays)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLoanDays, err)
		}
		cfg.LoanDays = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

// Validate rejects settings no operation could work with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return validationError("database path cannot be empty")
	}
	if c.LoanDays < 1 {
		return validationError(fmt.Sprintf("loan duration must be at least 1 day, got %d", c.LoanDays))
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, validationError(fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	return lvl, nil
}
