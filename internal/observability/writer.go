package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// WriterLogger renders structured log lines to an io.Writer.
// Suitable for binaries and tests; not optimised for throughput.
type WriterLogger struct {
	mu  sync.Mutex
	out io.Writer
	min Level
}

// Level orders log severities.
type Level int

const (
	// LevelDebug enables all output.
	LevelDebug Level = iota
	// LevelInfo suppresses debug output.
	LevelInfo
	// LevelWarn suppresses debug and info output.
	LevelWarn
	// LevelError only reports failures.
	LevelError
)

// NewWriterLogger constructs a logger writing to out at the given minimum level.
func NewWriterLogger(out io.Writer, min Level) *WriterLogger {
	return &WriterLogger{out: out, min: min}
}

// Debug logs at debug level.
func (l *WriterLogger) Debug(msg string, fields ...Field) { l.write(LevelDebug, "DEBUG", msg, fields) }

// Info logs at info level.
func (l *WriterLogger) Info(msg string, fields ...Field) { l.write(LevelInfo, "INFO", msg, fields) }

// Warn logs at warn level.
func (l *WriterLogger) Warn(msg string, fields ...Field) { l.write(LevelWarn, "WARN", msg, fields) }

// Error logs at error level.
func (l *WriterLogger) Error(msg string, fields ...Field) { l.write(LevelError, "ERROR", msg, fields) }

func (l *WriterLogger) write(level Level, label, msg string, fields []Field) {
	if l == nil || l.out == nil || level < l.min {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString(" ")
	b.WriteString(label)
	b.WriteString(" ")
	b.WriteString(msg)
	if len(fields) > 0 {
		pairs := make([]string, 0, len(fields))
		for _, f := range fields {
			if strings.TrimSpace(f.Key) == "" {
				continue
			}
			pairs = append(pairs, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		sort.Strings(pairs)
		if len(pairs) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Join(pairs, " "))
		}
	}
	b.WriteString("\n")
	l.mu.Lock()
	_, _ = io.WriteString(l.out, b.String())
	l.mu.Unlock()
}
