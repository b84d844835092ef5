// Package logging configures zerolog for the catalog client, the browse
// front end and the proxy.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as written in configuration.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names carried in the "component" field.
const (
	ComponentClient    = "catalog-client"
	ComponentBrowse    = "browse"
	ComponentBrowseCmd = "catalog-browse"
	ComponentProxy     = "catalog-proxy"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty selects console output. It is ignored when File is set.
	Pretty bool

	// Output receives log lines when File is empty (default: os.Stderr).
	Output io.Writer

	// File appends JSON log lines to this path instead of Output. The
	// browse TUI uses it so logs stay off the terminal.
	File string
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configures the global zerolog logger and returns it. The closer
// releases the log file when cfg.File is set and is a no-op otherwise.
func Setup(cfg Config) (zerolog.Logger, io.Closer, error) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var (
		output io.Writer = cfg.Output
		closer io.Closer = nopCloser{}
	)
	switch {
	case cfg.File != "":
		f, err := openLogFile(cfg.File)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		output, closer = f, f
	case output == nil:
		output = os.Stderr
	}
	if cfg.Pretty && cfg.File == "" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return log.Logger, closer, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// parseLevel maps a configured level to zerolog. Unknown or empty names
// fall back to info; "warning" is accepted for warn.
func parseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = "warn"
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// NewLogger returns the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Pagination transitions and chunk fetches
//   - Discarded stale chunk responses
//
// Info: Normal operation events
//   - Browse session start/close
//   - 304 Not Modified responses
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit cooldowns and throttling
//   - Retry attempts and circuit breaker state changes
//   - Failed chunk fetches (the view offers retry)
//   - Oversized chunk responses and rejected filter input
//
// Error: Error conditions requiring attention
//   - Failed requests (after retries)
//   - Service unavailability
//   - Configuration errors
//
// Context Fields:
//   - component: one of the Component constants
//   - session_id: browse session
//   - request_id: chunk fetch
//   - endpoint: catalog API path
//   - chunk, page: pagination position
//   - filters: active filter set
//   - error_class: client, server, rate_limit, network, circuit_open
