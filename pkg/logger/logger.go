package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger is the logging interface used by the library.
type Logger interface {
	Info(msg string, obj any)
	Warn(msg string, obj any)
	Debug(msg string, obj any)
	Error(msg string, obj any)
}

// Fields is the conventional payload for structured log lines.
type Fields map[string]any

// NopLogger discards all log messages.
type NopLogger struct{}

func (NopLogger) Info(string, any)  {}
func (NopLogger) Warn(string, any)  {}
func (NopLogger) Debug(string, any) {}
func (NopLogger) Error(string, any) {}

type writerLogger struct {
	mu  *sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewWriterLogger builds a logger that writes one line per entry to w.
func NewWriterLogger(w io.Writer) Logger {
	return writerLogger{mu: &sync.Mutex{}, w: w, now: time.Now}
}

func (l writerLogger) write(level, msg string, obj any) {
	if l.w == nil {
		return
	}

	line := fmt.Sprintf("%s %-5s %s", l.now().Format(time.RFC3339), level, msg)
	if obj != nil {
		if b, err := json.Marshal(obj); err == nil {
			line += " obj=" + string(b)
		} else {
			line += fmt.Sprintf(" obj=%q", fmt.Sprintf("%+v", obj))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.w, line)
}

func (l writerLogger) Info(msg string, obj any)  { l.write("INFO", msg, obj) }
func (l writerLogger) Warn(msg string, obj any)  { l.write("WARN", msg, obj) }
func (l writerLogger) Debug(msg string, obj any) { l.write("DEBUG", msg, obj) }
func (l writerLogger) Error(msg string, obj any) { l.write("ERROR", msg, obj) }

// With returns a logger that merges base into every Fields payload it logs.
// Non-Fields payloads are logged as-is under the "obj" key.
func With(l Logger, base Fields) Logger {
	if l == nil {
		return NopLogger{}
	}
	return scoped{next: l, base: base}
}

type scoped struct {
	next Logger
	base Fields
}

func (s scoped) merge(obj any) Fields {
	out := make(Fields, len(s.base)+1)
	for k, v := range s.base {
		out[k] = v
	}
	switch v := obj.(type) {
	case nil:
	case Fields:
		for k, val := range v {
			out[k] = val
		}
	case map[string]any:
		for k, val := range v {
			out[k] = val
		}
	default:
		out["obj"] = v
	}
	return out
}

func (s scoped) Info(msg string, obj any)  { s.next.Info(msg, s.merge(obj)) }
func (s scoped) Warn(msg string, obj any)  { s.next.Warn(msg, s.merge(obj)) }
func (s scoped) Debug(msg string, obj any) { s.next.Debug(msg, s.merge(obj)) }
func (s scoped) Error(msg string, obj any) { s.next.Error(msg, s.merge(obj)) }

// Debug writes a debug log when enabled and logger is non-nil.
func Debug(enabled bool, logger Logger, msg string, obj any) {
	if !enabled || logger == nil {
		return
	}
	logger.Debug(msg, obj)
}

// Info writes an info log when logger is non-nil.
func Info(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Info(msg, obj)
}

// Warn writes a warning log when logger is non-nil.
func Warn(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Warn(msg, obj)
}

// Error writes an error log when logger is non-nil.
func Error(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Error(msg, obj)
}
