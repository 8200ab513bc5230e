// Package logging writes structured JSONL event logs with rotation.
// Resolution warnings (identity fallback, skipped files) go through here;
// they are never allowed to abort a hook.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level tags an entry.
type Level string

const (
	LevelInfo Level = "info"
	LevelWarn Level = "warn"
)

// Entry is one JSONL log line.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     Level          `json:"level"`
	Component string         `json:"component"`
	Event     string         `json:"event"`
	Details   map[string]any `json:"details,omitempty"`
}

// RotationConfig mirrors lumberjack's knobs.
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultRotation keeps logs small enough to never matter: 10 MB files,
// three backups, two weeks retention.
func DefaultRotation() RotationConfig {
	return RotationConfig{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 14, Compress: false}
}

// Logger appends JSONL entries to a writer. Safe for concurrent use; the
// walker's worker pool logs skip warnings from multiple goroutines.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	pretty bool
}

// New opens a rotating log file. The directory is created as needed.
func New(path string, rot RotationConfig, pretty bool) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
		LocalTime:  true,
	}
	return &Logger{w: lj, closer: lj, pretty: pretty}, nil
}

// NewWriter wraps an arbitrary writer, used by tests and for stderr logs.
func NewWriter(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{w: io.Discard}
}

// Event records an info-level entry.
func (l *Logger) Event(component, event string, details map[string]any) {
	l.write(LevelInfo, component, event, details)
}

// Warn records a warn-level entry.
func (l *Logger) Warn(component, event string, details map[string]any) {
	l.write(LevelWarn, component, event, details)
}

func (l *Logger) write(level Level, component, event string, details map[string]any) {
	if l == nil || l.w == nil {
		return
	}
	entry := Entry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Component: component,
		Event:     event,
		Details:   details,
	}
	var data []byte
	var err error
	if l.pretty {
		data, err = json.MarshalIndent(entry, "", "  ")
	} else {
		data, err = json.Marshal(entry)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(append(data, '\n'))
}

// Close flushes the underlying rotating file, when there is one.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
