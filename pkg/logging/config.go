package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/retakehq/retake/pkg/constants"
)

// Config holds logger configuration options.
type Config struct {
	// Level is the minimum level to emit (trace, debug, info, warn,
	// error, fatal, disabled).
	Level string

	// Format selects the output encoding: json, console, or auto
	// (console on a terminal, json otherwise).
	Format string

	// Output is the destination: stderr, stdout, discard, or a file path.
	Output string

	// TimeFormat names the timestamp layout for console output
	// (kitchen, rfc3339, unix, stamp, or a custom Go layout).
	TimeFormat string

	// NoColor disables color in console output.
	NoColor bool

	// AddCaller includes file:line in every event.
	AddCaller bool

	// Fields are attached to every event the logger emits.
	Fields map[string]any
}

// DefaultConfig returns the baseline logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
		Fields:     make(map[string]any),
	}
}

// NewLoggerFromConfig builds a logger from cfg. A nil cfg uses the
// defaults. The global zerolog level is updated as a side effect so
// derived loggers inherit it.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(configuredWriter(cfg)).
		Level(level).
		With().
		Timestamp().
		Logger()

	if cfg.AddCaller || level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}

	if len(cfg.Fields) > 0 {
		logCtx := logger.With()
		for k, v := range cfg.Fields {
			logCtx = addFieldToContext(logCtx, k, v)
		}
		logger = logCtx.Logger()
	}

	return logger
}

// Configure replaces the default logger with one built from cfg.
func Configure(cfg *Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

// ConfigureFromEnv configures the default logger from LOG_* environment
// variables.
func ConfigureFromEnv() {
	Configure(&Config{
		Level:      envOr("LOG_LEVEL", "info"),
		Format:     envOr("LOG_FORMAT", "auto"),
		Output:     envOr("LOG_OUTPUT", "stderr"),
		TimeFormat: envOr("LOG_TIME_FORMAT", "kitchen"),
		NoColor:    os.Getenv("NO_COLOR") != "",
		AddCaller:  os.Getenv("LOG_CALLER") == "true",
		Fields:     parseFields(os.Getenv("LOG_FIELDS")),
	})
}

// configuredWriter resolves the destination and encoding for cfg.
func configuredWriter(cfg *Config) io.Writer {
	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		out = io.Discard
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
		if err != nil {
			// An unwritable log path must not kill the run.
			out = os.Stderr
		} else {
			out = file
		}
	}

	format := strings.ToLower(cfg.Format)
	if format == "auto" {
		format = "json"
		if file, ok := out.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
			format = "console"
		}
	}

	switch format {
	case "console", "pretty":
		return zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: timeLayout(cfg.TimeFormat),
			NoColor:    cfg.NoColor,
		}
	default:
		return out
	}
}

// parseLevel maps a level name to a zerolog level, accepting a few
// aliases zerolog itself does not.
func parseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// timeLayout maps a named timestamp style to a Go layout string. A
// name that looks like a layout itself is passed through.
func timeLayout(name string) string {
	switch strings.ToLower(name) {
	case "", "kitchen":
		return time.Kitchen
	case "rfc3339":
		return time.RFC3339
	case "rfc3339nano":
		return time.RFC3339Nano
	case "unix", "epoch":
		return "" // zerolog renders Unix timestamps for an empty layout
	case "stamp":
		return time.Stamp
	case "stampmilli":
		return time.StampMilli
	}
	if strings.Contains(name, "2006") || strings.Contains(name, "15:04") {
		return name
	}
	return time.Kitchen
}

// parseFields parses comma-separated key=value pairs into a field map.
func parseFields(raw string) map[string]any {
	fields := make(map[string]any)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
