package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester/pkg/constants"
)

// Config describes how a harvester logger writes.
type Config struct {
	Level      string         // trace, debug, info, warn, error, or off
	Format     string         // json, console, or auto (console on a terminal)
	Output     string         // stderr, stdout, discard, or a file path
	TimeFormat string         // kitchen, rfc3339, unix, or a Go layout
	NoColor    bool           // plain console output
	AddCaller  bool           // include file:line
	Fields     map[string]any // attached to every entry
	Writer     io.Writer      // overrides Output when set
}

// ConfigFromEnv reads HARVESTER_LOG_LEVEL, HARVESTER_LOG_FORMAT,
// HARVESTER_LOG_OUTPUT, HARVESTER_LOG_TIME_FORMAT, HARVESTER_LOG_CALLER and
// HARVESTER_LOG_FIELDS (comma-separated key=value pairs). LOG_LEVEL,
// LOG_FORMAT and DEBUG are honored as fallbacks.
func ConfigFromEnv() *Config {
	level := firstEnv("HARVESTER_LOG_LEVEL", "LOG_LEVEL")
	if level == "" {
		level = "info"
		if os.Getenv("DEBUG") != "" {
			level = "debug"
		}
	}
	format := firstEnv("HARVESTER_LOG_FORMAT", "LOG_FORMAT")
	if format == "" {
		format = "auto"
	}
	return &Config{
		Level:      level,
		Format:     format,
		Output:     firstEnv("HARVESTER_LOG_OUTPUT"),
		TimeFormat: firstEnv("HARVESTER_LOG_TIME_FORMAT"),
		NoColor:    os.Getenv("NO_COLOR") != "",
		AddCaller:  os.Getenv("HARVESTER_LOG_CALLER") == "true" || parseLevel(level) <= zerolog.DebugLevel,
		Fields:     parseFields(os.Getenv("HARVESTER_LOG_FIELDS")),
	}
}

// NewLoggerFromConfig builds a logger and sets the zerolog global level to
// match, so the level also applies to loggers derived later.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = ConfigFromEnv()
	}
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(cfg.writer()).Level(level).With().Timestamp()
	if cfg.AddCaller {
		ctx = ctx.Caller()
	}
	if len(cfg.Fields) > 0 {
		ctx = ctx.Fields(cfg.Fields)
	}
	return ctx.Logger()
}

// Configure replaces the default logger.
func Configure(cfg *Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

func (cfg *Config) writer() io.Writer {
	out := cfg.Writer
	if out == nil {
		out = openOutput(cfg.Output)
	}

	console := false
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		console = true
	case "", "auto":
		console = out == os.Stderr && stderrIsTerminal()
	}
	if !console {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: parseTimeFormat(cfg.TimeFormat), NoColor: cfg.NoColor}
}

// openOutput resolves an output name. An unwritable file falls back to stderr.
func openOutput(name string) io.Writer {
	switch strings.ToLower(name) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	case "discard", "none":
		return io.Discard
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return os.Stderr
	}
	return f
}

var levelAliases = map[string]zerolog.Level{
	"warning":  zerolog.WarnLevel,
	"none":     zerolog.Disabled,
	"off":      zerolog.Disabled,
	"disabled": zerolog.Disabled,
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if l, ok := levelAliases[level]; ok {
		return l
	}
	if l, err := zerolog.ParseLevel(level); err == nil && level != "" {
		return l
	}
	return zerolog.InfoLevel
}

var timeFormats = map[string]string{
	"":            time.Kitchen,
	"kitchen":     time.Kitchen,
	"rfc3339":     time.RFC3339,
	"rfc3339nano": time.RFC3339Nano,
	"stamp":       time.Stamp,
	"stampmilli":  time.StampMilli,
	"unix":        "",
	"epoch":       "",
}

func parseTimeFormat(format string) string {
	if layout, ok := timeFormats[strings.ToLower(format)]; ok {
		return layout
	}
	if strings.Contains(format, "2006") || strings.Contains(format, "15:04") {
		return format
	}
	return time.Kitchen
}

func parseFields(raw string) map[string]any {
	fields := make(map[string]any)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if key = strings.TrimSpace(key); ok && key != "" {
			fields[key] = strings.TrimSpace(value)
		}
	}
	return fields
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
