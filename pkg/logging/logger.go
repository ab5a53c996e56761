// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Component names used as the "component" field on every log line.
const (
	ComponentFeed     = "feed"
	ComponentLoader   = "document-loader"
	ComponentPostage  = "postage-cache"
	ComponentAPI      = "postage-api"
	ComponentTable    = "offers-table"
	ComponentCart     = "cart"
	ComponentLimiter  = "ratelimit"
	ComponentCLI      = "cli"
	ComponentHTTPServ = "http"
	ComponentClient   = "marketplace-client"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Postage cache operations (hit/miss, key)
//   - Readiness poll attempts
//   - Scroll trigger evaluations
//
// Info: Normal operation events
//   - Page requested / page merged
//   - Postage record fetched from the remote API
//   - Server startup/shutdown
//
// Warn: Conditions that degrade a single feature or row
//   - Readiness poll timed out (page skipped)
//   - Country name not in the static table
//   - Remote pricing fetch failed (no estimate shown)
//   - Store errors
//
// Error: Error conditions requiring attention
//   - Configuration errors
//   - Host document could not be loaded
//
// Context Fields:
//   - page: page number of a background document
//   - url: background document location
//   - ship_from / ship_to: country codes of a postage key
//   - article_id: listing row id
//   - outcome: ready, timed_out, cancelled
