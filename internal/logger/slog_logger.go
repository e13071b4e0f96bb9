package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"
)

// traceLevel sits below slog.LevelDebug (-4)
const traceLevel = slog.Level(-8)

// SlogLogger implements Logger using Go's standard log/slog
type SlogLogger struct {
	handler slog.Handler
	level   slog.Level
	module  string
	fields  []Field
	flush   func() error
}

// NewSlogLogger creates a new slog-based logger with JSON output
func NewSlogLogger(writer io.Writer, level LogLevel, timezone *time.Location) *SlogLogger {
	if writer == nil {
		writer = os.Stdout
	}
	if timezone == nil {
		timezone = time.UTC
	}

	lvl := parseSlogLevel(level)
	return &SlogLogger{
		handler: newJSONHandler(writer, lvl, timezone),
		level:   lvl,
	}
}

// NewConsoleLogger creates a console logger with human-readable text format.
// Output format: [DD.MM.YYYY HH:MM:SS] LEVEL [module] message key=value
func NewConsoleLogger(module string, level LogLevel) *SlogLogger {
	lvl := parseSlogLevel(level)
	return &SlogLogger{
		handler: newTextHandler(os.Stderr, lvl, time.Local),
		level:   lvl,
		module:  module,
	}
}

// NewTextLogger writes human-readable lines to w, used in tests to assert on log output
func NewTextLogger(w io.Writer, level LogLevel) *SlogLogger {
	lvl := parseSlogLevel(level)
	return &SlogLogger{
		handler: newTextHandler(w, lvl, time.UTC),
		level:   lvl,
	}
}

// NewDiscardLogger returns a logger that drops everything
func NewDiscardLogger() *SlogLogger {
	return &SlogLogger{handler: slog.DiscardHandler, level: slog.LevelError + 1}
}

// Module returns a logger scoped to a specific module
func (l *SlogLogger) Module(name string) Logger {
	moduleName := name
	if l.module != "" {
		moduleName = l.module + "." + name
	}

	return &SlogLogger{
		handler: l.handler,
		level:   l.level,
		module:  moduleName,
		fields:  l.fields,
		flush:   l.flush,
	}
}

// Trace logs a trace message (most verbose level)
func (l *SlogLogger) Trace(msg string, fields ...Field) {
	l.log(traceLevel, msg, fields...)
}

// Debug logs a debug message
func (l *SlogLogger) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields...)
}

// Info logs an info message
func (l *SlogLogger) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields...)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields...)
}

// Error logs an error message
func (l *SlogLogger) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields...)
}

// Log logs a message with explicit level
func (l *SlogLogger) Log(level LogLevel, msg string, fields ...Field) {
	l.log(parseSlogLevel(level), msg, fields...)
}

// With returns a new logger with accumulated fields
func (l *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{
		handler: l.handler,
		level:   l.level,
		module:  l.module,
		fields:  slices.Concat(l.fields, fields),
		flush:   l.flush,
	}
}

// WithContext returns a logger carrying the trace id found in ctx
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceID(ctx)
	if traceID == "" {
		return l
	}
	return l.With(String("trace_id", traceID))
}

// Flush ensures all buffered logs are written
func (l *SlogLogger) Flush() error {
	if l.flush == nil {
		return nil
	}
	return l.flush()
}

func (l *SlogLogger) log(level slog.Level, msg string, fields ...Field) {
	if l == nil || level < l.level {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields)+1)
	if l.module != "" {
		attrs = append(attrs, slog.String("module", l.module))
	}
	for _, f := range l.fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}

	slog.New(l.handler).LogAttrs(context.Background(), level, msg, attrs...)
}

func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, v)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.Duration(f.Key, v)
	default:
		return slog.Any(f.Key, v)
	}
}

// ParseLevel converts a configured level name, unknown names map to info
func ParseLevel(level string) LogLevel {
	switch LogLevel(level) {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return LogLevel(level)
	default:
		return LogLevelInfo
	}
}

func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return traceLevel
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
