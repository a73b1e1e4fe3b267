// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

const (
	// shortTimeFormat is used on interactive output.
	shortTimeFormat = "15:04:05.000"
	// fileTimeFormat is used for the append-only log file, where lines
	// from different days end up next to each other.
	fileTimeFormat = "2006-01-02T15:04:05.000Z07:00"
)

// Logger writes levelled messages to stderr (or a log file) with
// optional timestamps and level prefixes.  It is safe for concurrent
// use by the editor thread and the bridge's network goroutines.
type Logger struct {
	level      LogLevel
	output     io.Writer
	mu         sync.Mutex
	timestamps bool // if true, prepend timestamps
	timeFormat string
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
		timeFormat: shortTimeFormat,
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	l.timestamps = on
	l.mu.Unlock()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.output = w
	l.mu.Unlock()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("INF", format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("WRN", format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.write("VRB", format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.write("DBG", format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("ERR", format, args...)
}

func (l *Logger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.timestamps {
		ts := time.Now().Format(l.timeFormat)
		fmt.Fprintf(l.output, "%s [%s] %s\n", ts, level, msg)
	} else {
		fmt.Fprintf(l.output, "[%s] %s\n", level, msg)
	}
}

// ── Process-wide logging ─────────────────────────────────────────────

var (
	initOnce   sync.Once
	initLogger *Logger
	initErr    error
)

// InitLogging sets up the process-wide logger exactly once.  With a
// non-empty path every line is appended to that file with a full
// timestamp; otherwise output goes to stderr.  Later calls ignore their
// arguments and return the logger (or error) from the first call.
func InitLogging(path string, verbosity int) (*Logger, error) {
	initOnce.Do(func() {
		initLogger, initErr = newProcessLogger(path, verbosity)
	})
	return initLogger, initErr
}

func newProcessLogger(path string, verbosity int) (*Logger, error) {
	l := NewLogger(verbosity)
	if path == "" {
		return l, nil
	}
	f, err := OpenLogFile(path)
	if err != nil {
		return nil, err
	}
	l.output = f
	l.timestamps = true
	l.timeFormat = fileTimeFormat
	return l, nil
}

// OpenLogFile opens path for appending, creating it if needed.
func OpenLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}
