// Package status owns the process-lifetime status record shown on the dashboard.
//
// All mutations go through a Store, which serialises writers and publishes an
// immutable Snapshot after every change. Readers only ever see whole snapshots.
package status

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

// DefaultHistorySize caps the event history.
const DefaultHistorySize = 50

// Level tags a history entry for the dashboard.
type Level string

// History levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Entry is one line of the dashboard history.
type Entry struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Level   Level  `json:"level"`
}

// Snapshot is a read-only copy of the status record.
type Snapshot struct {
	StartedAt         *time.Time      `json:"started_at"`
	Checks            int64           `json:"checks"`
	NotificationsSent int64           `json:"notifications_sent"`
	Errors            int64           `json:"errors"`
	SlotsDetected     int64           `json:"slots_detected"`
	LastCheck         *time.Time      `json:"last_check"`
	LastStatusCode    int             `json:"last_status_code"`
	LastPageBytes     int             `json:"last_page_bytes"`
	LastPageHash      string          `json:"last_page_hash"`
	LastOutcome       watcher.Outcome `json:"last_outcome"`
	Message           string          `json:"message"`
	Enabled           bool            `json:"enabled"`
	History           []Entry         `json:"history"`
}

// Check is what the polling loop reports after each cycle.
type Check struct {
	At         time.Time
	Outcome    watcher.Outcome
	StatusCode int
	Size       int
	PageHash   string
	Message    string
	// Failed marks a cycle whose fetch failed; no page metadata is recorded.
	Failed bool
}

// Store is the single owner of the status record.
type Store struct {
	mu      sync.Mutex
	clock   watcher.Clock
	state   Snapshot
	history *ring
	current atomic.Pointer[Snapshot]
}

// NewStore creates an enabled Store with the given history capacity.
func NewStore(clock watcher.Clock, historySize int) *Store {
	s := &Store{
		clock:   clock,
		history: newRing(historySize),
		state: Snapshot{
			Message: "Iniciando...",
			Enabled: true,
		},
	}
	s.publishLocked()
	return s
}

// Snapshot returns a copy of the latest published record.
func (s *Store) Snapshot() Snapshot {
	return s.current.Load().clone()
}

// MarkStarted records the start of monitoring.
func (s *Store) MarkStarted(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StartedAt = &at
	s.publishLocked()
}

// RecordCheck applies one polling cycle to the counters and returns the
// resulting snapshot.
func (s *Store) RecordCheck(c Check) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := c.At
	s.state.Checks++
	s.state.LastCheck = &at
	s.state.LastOutcome = c.Outcome
	s.state.Message = c.Message
	if c.Failed {
		s.state.Errors++
		return s.publishLocked()
	}
	s.state.LastStatusCode = c.StatusCode
	s.state.LastPageBytes = c.Size
	s.state.LastPageHash = c.PageHash
	switch c.Outcome {
	case watcher.OutcomeAvailable:
		s.state.SlotsDetected++
	case watcher.OutcomeError:
		s.state.Errors++
	}
	return s.publishLocked()
}

// RecordNotification counts one cooldown-gated dispatch round.
func (s *Store) RecordNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.NotificationsSent++
	s.publishLocked()
}

// Log appends a history entry stamped with the store's clock.
func (s *Store) Log(level Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.push(Entry{
		Time:    s.clock.Now().Format("15:04:05"),
		Message: message,
		Level:   level,
	})
	s.publishLocked()
}

// Enabled reports whether notifications are active.
func (s *Store) Enabled() bool {
	return s.Snapshot().Enabled
}

// SetEnabled pauses or resumes notifications.
func (s *Store) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Enabled = enabled
	s.publishLocked()
}

// Toggle flips the enabled flag and returns the new value.
func (s *Store) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Enabled = !s.state.Enabled
	s.publishLocked()
	return s.state.Enabled
}

func (s *Store) publishLocked() Snapshot {
	snap := s.state
	snap.History = s.history.items()
	s.current.Store(&snap)
	return snap.clone()
}

func (s Snapshot) clone() Snapshot {
	s.History = append([]Entry(nil), s.History...)
	if s.History == nil {
		s.History = []Entry{}
	}
	return s
}
