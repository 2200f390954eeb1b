// Package log writes leveled, categorized key=value lines to a file.
//
// Nothing is written until Open (or SetDefault) installs a logger, which cmd
// does when --debug or REGFORM_DEBUG is set. The terminal is never a target,
// so the TUI cannot be corrupted by log output.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel/trace"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel accepts debug, info, warn or error in any case.
// The empty string is debug.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return LevelDebug, nil
	}
	for level, name := range levelNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	if strings.EqualFold(s, "warning") {
		return LevelWarn, nil
	}
	return LevelDebug, fmt.Errorf("unknown log level %q", s)
}

// Category groups related log messages.
type Category string

const (
	CatConfig  Category = "config"  // Configuration loading/saving
	CatAPI     Category = "api"     // Registration API client calls
	CatForm    Category = "form"    // Field validation
	CatSession Category = "session" // Availability checks and submission state
	CatServer  Category = "server"  // Development backend requests
	CatStore   Category = "store"   // Backend persistence
	CatUI      Category = "ui"      // UI component updates
	CatWatcher Category = "watcher" // File watcher events
	CatCache   Category = "cache"
)

// Logger writes formatted lines to an io.Writer. Safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	w        io.Writer
	minLevel Level
	now      func() time.Time
}

// New creates a logger that drops entries below minLevel.
func New(w io.Writer, minLevel Level) *Logger {
	return &Logger{w: w, minLevel: minLevel, now: time.Now}
}

// SetMinLevel changes the threshold.
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.minLevel
}

// Log writes one entry.
func (l *Logger) Log(level Level, cat Category, msg string, fields ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel || l.w == nil {
		return
	}
	_, _ = io.WriteString(l.w, Format(l.now(), level, cat, msg, fields...)+"\n")
}

var std atomic.Pointer[Logger]

// SetDefault installs l as the package-level logger. Nil disables logging.
func SetDefault(l *Logger) {
	std.Store(l)
}

// Default returns the package-level logger, or nil when logging is off.
func Default() *Logger {
	return std.Load()
}

// Open appends to path through tea.LogToFile and installs the result as the
// default logger. The returned cleanup disables logging and closes the file.
func Open(path, prefix string, minLevel Level) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	SetDefault(New(f, minLevel))
	return func() {
		SetDefault(nil)
		_ = f.Close()
	}, nil
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	write(LevelDebug, cat, msg, fields)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	write(LevelInfo, cat, msg, fields)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	write(LevelWarn, cat, msg, fields)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	write(LevelError, cat, msg, fields)
}

// ErrorErr logs at error level with err appended as the "error" field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	errText := "<nil>"
	if err != nil {
		errText = err.Error()
	}
	write(LevelError, cat, msg, append(fields, "error", errText))
}

// DebugContext is Debug with the trace and span IDs of ctx appended, so a
// line can be matched with its exported span.
func DebugContext(ctx context.Context, cat Category, msg string, fields ...any) {
	write(LevelDebug, cat, msg, append(fields, TraceFields(ctx)...))
}

// WarnContext is Warn with the trace and span IDs of ctx appended.
func WarnContext(ctx context.Context, cat Category, msg string, fields ...any) {
	write(LevelWarn, cat, msg, append(fields, TraceFields(ctx)...))
}

// TraceFields returns trace_id and span_id fields for the span in ctx, or
// nil when ctx carries no valid span.
func TraceFields(ctx context.Context) []any {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []any{"trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String()}
}

// Format renders a single log line without the trailing newline:
//
//	2025-12-06T10:45:00 [ERROR] [api] message key=value key2=value2
//
// A trailing key without a value is written as key=<missing>.
func Format(ts time.Time, level Level, cat Category, msg string, fields ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", ts.Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i < len(fields); i += 2 {
		if i+1 == len(fields) {
			fmt.Fprintf(&b, " %v=<missing>", fields[i])
			break
		}
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	return b.String()
}

func write(level Level, cat Category, msg string, fields []any) {
	if l := std.Load(); l != nil {
		l.Log(level, cat, msg, fields...)
	}
}
