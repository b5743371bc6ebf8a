/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-throttledio/log"
)

// RecordedEntry is a logged entry kept by Recorder.
type RecordedEntry struct {
	LoggerName string
	Fields     []log.Field
	Level      log.Level
	Time       time.Time
	Text       string
}

// FindField looks up a field of the entry by key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

type entryStore struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic
func (s *entryStore) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.Fields)+len(e.DerivedFields))
	fields = append(fields, e.DerivedFields...)
	fields = append(fields, e.Fields...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, RecordedEntry{
		LoggerName: e.LoggerName,
		Fields:     fields,
		Level:      levelFromLogf(e.Level),
		Time:       e.Time,
		Text:       e.Text,
	})
}

// Recorder is a log.FieldLogger that keeps all logged entries in memory,
// so tests may check what was logged.
type Recorder struct {
	*log.LogfAdapter
	store *entryStore
}

// NewRecorder returns a Recorder that records entries of all levels.
func NewRecorder() *Recorder {
	store := &entryStore{}
	return &Recorder{&log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, store)}, store}
}

// With returns a Recorder with additional fields that shares entries with r.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{r.LogfAdapter.With(fs...).(*log.LogfAdapter), r.store}
}

// WithLevel returns a Recorder with the additional level check that shares entries with r.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return &Recorder{r.LogfAdapter.WithLevel(level).(*log.LogfAdapter), r.store}
}

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]RecordedEntry(nil), r.store.entries...)
}

// FindEntry returns the first recorded entry with the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	entries := r.FindEntries(func(entry RecordedEntry) bool { return entry.Text == msg })
	if len(entries) == 0 {
		return RecordedEntry{}, false
	}
	return entries[0], true
}

// FindEntries returns all recorded entries accepted by filter.
func (r *Recorder) FindEntries(filter func(entry RecordedEntry) bool) []RecordedEntry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var found []RecordedEntry
	for _, entry := range r.store.entries {
		if filter(entry) {
			found = append(found, entry)
		}
	}
	return found
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}

func levelFromLogf(level logf.Level) log.Level {
	switch level {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	}
	return log.LevelInfo
}
