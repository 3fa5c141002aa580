// Package errors provides the structured error types of the asset pipeline
// and a log of degraded, non-fatal build conditions.
package errors

import (
	"fmt"
	"sync"
	"time"
)

// DefaultWarningLimit bounds a WarningLog so long watch sessions do not
// accumulate warnings forever.
const DefaultWarningLimit = 256

// Level grades a Warning.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Warning records a problem met during a build, such as an input that
// vanished before it could be read. It never aborts the build.
type Warning struct {
	Path   string
	Reason string
	Level  Level
	At     time.Time
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Path, w.Level, w.Reason)
}

// WarningLog keeps the most recent warnings of a compiler.
type WarningLog struct {
	mu       sync.RWMutex
	warnings []Warning
	limit    int
	dropped  int
	now      func() time.Time
}

// NewWarningLog creates a log holding at most limit warnings. A limit of
// zero or less means DefaultWarningLimit.
func NewWarningLog(limit int) *WarningLog {
	if limit <= 0 {
		limit = DefaultWarningLimit
	}
	return &WarningLog{limit: limit, now: time.Now}
}

// Record appends w, evicting the oldest entry when the log is full.
func (l *WarningLog) Record(w Warning) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w.At.IsZero() {
		w.At = l.now()
	}
	if len(l.warnings) == l.limit {
		copy(l.warnings, l.warnings[1:])
		l.warnings = l.warnings[:len(l.warnings)-1]
		l.dropped++
	}
	l.warnings = append(l.warnings, w)
}

// Warn records a LevelWarning entry for path.
func (l *WarningLog) Warn(path, reason string) {
	l.Record(Warning{Path: path, Reason: reason, Level: LevelWarning})
}

// List returns the retained warnings, oldest first.
func (l *WarningLog) List() []Warning {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Warning, len(l.warnings))
	copy(out, l.warnings)
	return out
}

// ForPath returns the retained warnings about path.
func (l *WarningLog) ForPath(path string) []Warning {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Warning
	for _, w := range l.warnings {
		if w.Path == path {
			out = append(out, w)
		}
	}
	return out
}

// Len is the number of retained warnings.
func (l *WarningLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.warnings)
}

// Dropped is the number of warnings evicted to respect the limit.
func (l *WarningLog) Dropped() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}

// Reset empties the log.
func (l *WarningLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = l.warnings[:0]
	l.dropped = 0
}
