package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogFilePermissions is the default file permissions for log files (rw-------)
const LogFilePermissions = 0o600

// Config selects the outputs of the central logger
type Config struct {
	Level    string // trace, debug, info, warn, error
	File     string // optional JSON log file
	Console  bool   // human-readable output on stderr
	Timezone string // "Local", "UTC" or an IANA name
}

// CentralLogger owns the log outputs and hands out module loggers
type CentralLogger struct {
	root    *SlogLogger
	logFile *os.File
	mu      sync.Mutex
}

// NewCentralLogger opens the configured outputs
func NewCentralLogger(cfg Config) (*CentralLogger, error) {
	tz := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid log timezone %q: %w", cfg.Timezone, err)
		}
		tz = loc
	}

	level := parseSlogLevel(ParseLevel(cfg.Level))
	cl := &CentralLogger{}

	var handlers fanoutHandler
	if cfg.Console {
		handlers = append(handlers, newTextHandler(os.Stderr, level, tz))
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		cl.logFile = f
		handlers = append(handlers, newJSONHandler(f, level, tz))
	}

	var handler slog.Handler = handlers
	if len(handlers) == 0 {
		handler = slog.DiscardHandler
	}

	cl.root = &SlogLogger{handler: handler, level: level, flush: cl.sync}
	return cl, nil
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	return cl.root.Module(name)
}

// Logger returns the unscoped root logger
func (cl *CentralLogger) Logger() Logger {
	return cl.root
}

func (cl *CentralLogger) sync() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.logFile == nil {
		return nil
	}
	return cl.logFile.Sync()
}

// Close flushes and closes the log file
func (cl *CentralLogger) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.logFile == nil {
		return nil
	}
	err := cl.logFile.Close()
	cl.logFile = nil
	return err
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewConsoleLogger("", LogLevelInfo)
)

// SetGlobal replaces the process-wide logger used by Global
func SetGlobal(l Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Global returns the process-wide logger, a console logger at info level until SetGlobal runs
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
