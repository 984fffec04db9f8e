// Package logger provides structured, leveled logging for the ULDB storage
// engine.
//
// Unlike a process-wide logging facility, a Logger here is instance state:
// it is constructed once (via logger.New, using the level resolved by
// config.Load) and carried on the owning *uldb.Database value, never kept
// in a package-level variable. This mirrors the "global mutable state"
// design note: registries, indexes, and now loggers live on the value
// that owns them.
//
// Log output format:
//
//	YYYY/MM/DD HH:MM:SS.ssssss [LEVEL] message
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// Level is the severity of a log message, ordered from most to least verbose.
type Level int32

const (
	// TRACE logs per-record detail: entry appends, index updates, string
	// interning hits. Never enabled in production use.
	TRACE Level = iota
	// DEBUG logs table lifecycle events and buffer-growth rewrites.
	DEBUG
	// INFO logs general informational messages (table creation/deletion is
	// logged at DEBUG).
	INFO
	// WARN logs recoverable anomalies (e.g. a grow that barely fit).
	WARN
	// ERROR logs format/corruption errors before they are returned to the caller.
	ERROR
)

var levelNames = map[Level]string{
	TRACE: "TRACE",
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel parses a level name (case-insensitive). Unknown names yield an error.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return 0, fmt.Errorf("logger: invalid log level %q", name)
	}
}

// Logger is a minimal leveled logger safe for concurrent use. Level checks
// are atomic so a disabled level costs a single load, no formatting.
type Logger struct {
	level atomic.Int32
	out   *log.Logger
}

// New returns a Logger writing to w at the given minimum level.
func New(w io.Writer, level Level) *Logger {
	l := &Logger{out: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)}
	l.level.Store(int32(level))
	return l
}

// SetLevel changes the minimum level that will be emitted.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && int32(level) >= l.level.Load()
}

func (l *Logger) log(level Level, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.out.Printf("[%s] %s", levelNames[level], fmt.Sprintf(format, args...))
}

func (l *Logger) Tracef(format string, args ...any) { l.log(TRACE, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(ERROR, format, args...) }
