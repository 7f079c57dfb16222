package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once

	std = log.New(os.Stderr, "", log.LstdFlags)
)

// ParseLevel converts the DEBUG and LOG_LEVEL values into a level.
// DEBUG takes precedence when it holds a truthy value.
func ParseLevel(debug, level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(debug)) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func initLevel() {
	levelOnce.Do(func() {
		currentLevel = ParseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// SetLevel overrides the level read from the environment.
func SetLevel(level LogLevel) {
	initLevel()
	currentLevel = level
}

// SetOutput redirects all log output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logf(level LogLevel, tag, format string, args ...interface{}) {
	if GetLevel() <= level {
		std.Printf("["+tag+"] "+format, args...)
	}
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	logf(LevelDebug, "DEBUG", format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	logf(LevelInfo, "INFO", format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	logf(LevelWarn, "WARN", format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	logf(LevelError, "ERROR", format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	std.Fatalf("[FATAL] "+format, args...)
}

// Printf is a pass-through for messages that should always print
func Printf(format string, args ...interface{}) {
	std.Printf(format, args...)
}

// Logger writes leveled lines with a fixed prefix.
type Logger struct {
	prefix string
}

// Scoped returns a Logger whose lines are prefixed with "name=value".
// Scoping an existing Logger appends to its prefix.
func Scoped(name, value string) *Logger {
	return (&Logger{}).With(name, value)
}

// With returns a child logger with an additional "name=value" prefix.
func (l *Logger) With(name, value string) *Logger {
	field := name + "=" + value
	if l == nil || l.prefix == "" {
		return &Logger{prefix: field}
	}
	return &Logger{prefix: l.prefix + " " + field}
}

func (l *Logger) scoped(format string) string {
	if l == nil || l.prefix == "" {
		return format
	}
	return "(" + l.prefix + ") " + format
}

// Debug logs a scoped debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	Debug(l.scoped(format), args...)
}

// Info logs a scoped info message
func (l *Logger) Info(format string, args ...interface{}) {
	Info(l.scoped(format), args...)
}

// Warn logs a scoped warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	Warn(l.scoped(format), args...)
}

// Error logs a scoped error message
func (l *Logger) Error(format string, args ...interface{}) {
	Error(l.scoped(format), args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
