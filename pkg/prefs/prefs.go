// Package prefs records user actions as a bounded, append-only log.
//
// Entries are read-only input to AI prompt construction; nothing else in the
// core consumes them.
package prefs

import (
	"sync"
	"time"

	"github.com/calmstack/declutter/internal/models"
)

// Recorder captures one learned preference per user action.
type Recorder interface {
	Record(pref models.LearnedPreference)
}

// Log is an in-memory bounded preference log. When the log is full the
// oldest entries are dropped first.
type Log struct {
	mu      sync.Mutex
	entries []models.LearnedPreference
	max     int
}

// NewLog creates a log bounded at models.MaxLearnedPreferences entries.
func NewLog() *Log {
	return &Log{max: models.MaxLearnedPreferences}
}

// Record appends an entry, stamping it if the caller did not.
func (l *Log) Record(pref models.LearnedPreference) {
	if pref.Timestamp == 0 {
		pref.Timestamp = time.Now().Unix()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, pref)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []models.LearnedPreference {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.LearnedPreference, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the current number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
