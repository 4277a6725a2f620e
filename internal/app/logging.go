package app

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// slogLevel maps the level onto slog's scale.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown names map to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	// Level is the minimum log level to output.
	Level LogLevel
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Prefix is attached to every record as the app attribute.
	Prefix string
	// JSON selects JSON output instead of key=value text.
	JSON bool
}

// DefaultLoggerConfig returns the default logger configuration.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:  LogLevelInfo,
		Output: os.Stderr,
		Prefix: "actionhistory",
	}
}

// Logger is a structured logger on top of log/slog. Loggers derived with
// WithField or WithComponent share the level and the enabled switch of the
// logger they came from.
type Logger struct {
	level *slog.LevelVar
	off   *atomic.Bool
	sl    *slog.Logger
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(cfg LoggerConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Level.slogLevel())
	off := new(atomic.Bool)

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(cfg.Output, hopts)
	} else {
		h = slog.NewTextHandler(cfg.Output, hopts)
	}

	sl := slog.New(switchHandler{Handler: h, off: off})
	if cfg.Prefix != "" {
		sl = sl.With("app", cfg.Prefix)
	}
	return &Logger{level: level, off: off, sl: sl}
}

// WithField returns a new logger with the given field added.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{level: l.level, off: l.off, sl: l.sl.With(key, value)}
}

// WithFields returns a new logger with the given fields added, in key order.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, 2*len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, k, fields[k])
	}
	return &Logger{level: l.level, off: l.off, sl: l.sl.With(args...)}
}

// WithComponent returns a new logger with the component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

// Level returns the current minimum level.
func (l *Logger) Level() LogLevel {
	switch lv := l.level.Level(); {
	case lv <= slog.LevelDebug:
		return LogLevelDebug
	case lv <= slog.LevelInfo:
		return LogLevelInfo
	case lv <= slog.LevelWarn:
		return LogLevelWarn
	default:
		return LogLevelError
	}
}

// Disable disables all logging.
func (l *Logger) Disable() {
	l.off.Store(true)
}

// Enable enables logging.
func (l *Logger) Enable() {
	l.off.Store(false)
}

// Slog returns the underlying *slog.Logger for packages that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.sl
}

// Debug logs a debug message with optional key/value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.sl.Debug(msg, args...)
}

// Info logs an info message with optional key/value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.sl.Info(msg, args...)
}

// Warn logs a warning message with optional key/value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.sl.Warn(msg, args...)
}

// Error logs an error message with optional key/value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.sl.Error(msg, args...)
}

// NullLogger is a logger that discards all output.
var NullLogger = newNullLogger()

func newNullLogger() *Logger {
	l := NewLogger(LoggerConfig{Output: io.Discard})
	l.Disable()
	return l
}

// switchHandler drops every record while off is set.
type switchHandler struct {
	slog.Handler
	off *atomic.Bool
}

func (h switchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return !h.off.Load() && h.Handler.Enabled(ctx, level)
}

func (h switchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return switchHandler{Handler: h.Handler.WithAttrs(attrs), off: h.off}
}

func (h switchHandler) WithGroup(name string) slog.Handler {
	return switchHandler{Handler: h.Handler.WithGroup(name), off: h.off}
}

// Logger returns the application's logger.
func (app *Application) Logger() *Logger {
	if app.logger == nil {
		return NullLogger
	}
	return app.logger
}

// logComponentError logs an error with component context.
func (app *Application) logComponentError(component string, err error) {
	if err != nil {
		app.Logger().WithComponent(component).Error("component error", "error", err)
	}
}
