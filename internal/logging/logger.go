// Package logging configures the process-wide slog logger used for diagnostics.
// User-facing output is printed by the commands, not logged.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logger  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logFile *os.File
)

// LogLevel represents logging verbosity.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// Config holds logger configuration.
type Config struct {
	Level      LogLevel
	OutputPath string // empty for stderr
	Format     string // "json" or "text"
	// Writer overrides OutputPath when set.
	Writer io.Writer
}

// ParseLevel accepts level names in any case. Unknown names fall back to WARN.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelInfo:
		return LevelInfo
	case LevelError:
		return LevelError
	}
	return LevelWarn
}

func (l LogLevel) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelWarn
}

// Init replaces the global logger and installs it as slog's default. A log file
// opened by an earlier Init is closed.
func Init(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	writer := config.Writer
	var file *os.File
	if writer == nil {
		if config.OutputPath == "" {
			writer = os.Stderr
		} else {
			if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o750); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
			f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			writer, file = f, f
		}
	}

	opts := &slog.HandlerOptions{Level: config.Level.toSlog()}
	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "", "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		if file != nil {
			file.Close()
		}
		return fmt.Errorf("unknown log format %q (want text or json)", config.Format)
	}

	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	logger = slog.New(handler)
	slog.SetDefault(logger)
	return nil
}

// Close closes the log file, if any, and falls back to stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Get returns the current logger.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// With returns the current logger annotated with a component name.
func With(component string) *slog.Logger {
	return Get().With("component", component)
}
