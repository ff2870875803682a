package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned by Begin while the session's previous run is
// still executing
var ErrRunInProgress = errors.New("a run is already in progress for this session")

// entry is the state kept for one browser session
type entry[T any] struct {
	latest   *T
	busy     bool
	lastSeen time.Time
}

// Store is an in-memory, per-session record of the latest completed run.
// Each session executes at most one run at a time. Idle sessions expire after
// the TTL.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewStore creates a store whose sessions expire after ttl of inactivity.
// A nil clock means time.Now.
func NewStore[T any](ttl time.Duration, clock func() time.Time, logger *slog.Logger) *Store[T] {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		now:     clock,
		logger:  logger.With(slog.String("component", "session_store")),
	}
}

// NewID returns a fresh session identifier
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an identifier issued by NewID
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Begin marks a run as started for the session, creating the session if
// needed. It fails with ErrRunInProgress when a run is already executing.
func (s *Store[T]) Begin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &entry[T]{}
		s.entries[id] = e
	}
	if e.busy {
		return ErrRunInProgress
	}
	e.busy = true
	e.lastSeen = s.now()
	return nil
}

// Finish ends the session's current run. A non-nil result replaces the
// latest one; a failed run passes nil and keeps the previous result.
func (s *Store[T]) Finish(id string, result *T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.busy = false
	e.lastSeen = s.now()
	if result != nil {
		e.latest = result
	}
}

// Latest returns the session's most recent successful result
func (s *Store[T]) Latest(id string) (*T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.latest == nil {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.latest, true
}

// Len returns the number of live sessions
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes sessions idle for longer than the TTL. Sessions with a run in
// progress are never removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, e := range s.entries {
		if !e.busy && e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done
func (s *Store[T]) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.Debug("expired sessions removed",
					slog.Int("removed", removed),
					slog.Int("remaining", s.Len()))
			}
		}
	}
}
