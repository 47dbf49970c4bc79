// Package logging provides structured logging for the retake system using
// zerolog: console output for interactive runs, JSON for batch runs whose
// logs are collected, and context helpers that thread a logger (plus the
// run ID) through the reconciliation pipeline.
//
// Example usage:
//
//	// Get the default logger
//	log := logging.Default()
//	log.Info().Str("path", "/photos/IMG_0001.HEIC").Msg("Reconciling file")
//
//	// Create a logger with context
//	ctx := logging.WithLogger(context.Background(), log)
//	ctxLog := logging.FromContext(ctx)
//	ctxLog.Debug().Msg("Using logger from context")
//
//	// Add structured fields
//	log.Error().
//	    Err(err).
//	    Str("path", "/photos/IMG_0001.HEIC").
//	    Str("field", "gps").
//	    Msg("Failed to write metadata")
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// defaultLogger is the process-wide logger used by the package-level
	// event helpers until Configure or SetDefault replaces it.
	defaultLogger zerolog.Logger

	// Nop discards everything.
	Nop = zerolog.Nop()
)

func init() {
	level := levelFromEnv()
	zerolog.SetGlobalLevel(level)

	var writer io.Writer = os.Stderr
	if stderrIsTerminal() && os.Getenv("LOG_FORMAT") != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	defaultLogger = logger
}

// levelFromEnv reads the startup log level from LOG_LEVEL, with DEBUG=1
// as a shorthand for debug.
func levelFromEnv() zerolog.Level {
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if level, err := zerolog.ParseLevel(raw); err == nil {
			return level
		}
		return zerolog.InfoLevel
	}
	if os.Getenv("DEBUG") != "" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the default global logger. zerolog's own global
// logger is kept in sync so third-party code logging through it lands
// in the same place.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a JSON logger writing to w at the global level.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// NewConsole creates a human-readable logger on stderr.
func NewConsole() zerolog.Logger {
	return New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	})
}

// NewJSON creates a structured JSON logger. A nil writer means stderr.
func NewJSON(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return New(w)
}

// With opens a field context on the default logger.
func With() zerolog.Context {
	return defaultLogger.With()
}

// Level derives a child of the default logger at the given level.
func Level(level zerolog.Level) zerolog.Logger {
	return defaultLogger.Level(level)
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts an info event on the default logger.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts an error event on the default logger.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Fatal starts a fatal event on the default logger; the process exits
// after the message is written.
func Fatal() *zerolog.Event {
	return defaultLogger.Fatal()
}

// WithLevel starts an event at a dynamically chosen level.
func WithLevel(level zerolog.Level) *zerolog.Event {
	return defaultLogger.WithLevel(level)
}

// Err starts an error-or-info event depending on whether err is nil.
func Err(err error) *zerolog.Event {
	return defaultLogger.Err(err)
}
