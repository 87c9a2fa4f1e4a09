package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel orders message severities.  Messages above the configured level
// are dropped.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// parseLogLevel maps a LOG_LEVEL string to a LogLevel.  Unknown values
// default to info.
func parseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// Logger writes timestamped, levelled lines to stdout or an append-only
// file.  It is safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	level LogLevel
	out   io.Writer
	file  *os.File // non-nil when logging to a file
}

// NewLogger creates a logger for the given LOG_LEVEL and LOG_FILE values.
// A destination of "stdout" (case-insensitive) logs to standard output;
// anything else is treated as a file path opened in append mode.
func NewLogger(level, dest string) (*Logger, error) {
	l := &Logger{level: parseLogLevel(level)}
	if strings.EqualFold(dest, "stdout") {
		l.out = os.Stdout
		return l, nil
	}
	f, err := os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	l.out = f
	l.file = f
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) logf(level LogLevel, format string, args ...any) {
	if level > l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format(time.RFC3339)
	line := fmt.Sprintf("%s %s - %s\n", ts, level, fmt.Sprintf(format, args...))
	if _, err := io.WriteString(l.out, line); err != nil {
		fmt.Fprintf(os.Stderr, "log write error: %v\n", err)
	}
	// Errors are duplicated to stderr when logging to stdout so they survive
	// pipelines that only capture one stream.
	if level == LevelError && l.file == nil {
		fmt.Fprint(os.Stderr, line)
	}
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
