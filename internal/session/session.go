// Package session keeps per-client browsing state that must not outlive the
// client's session, such as the set of blueprints it recently deleted.
package session

import (
	"context"
	"sync"
	"time"
)

// Session is the state of one client session. A new Session starts with an
// empty tombstone set; nothing in it is persisted.
type Session struct {
	ID string

	mu         sync.RWMutex
	tombstones map[string]struct{}
	lastSeen   time.Time
}

// New creates an empty session
func New(id string) *Session {
	return &Session{
		ID:         id,
		tombstones: make(map[string]struct{}),
		lastSeen:   time.Now(),
	}
}

// AddTombstone remembers a blueprint this session deleted, so listings can hide
// it until the search index catches up. Display only: never use it for access control.
func (s *Session) AddTombstone(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstones[id] = struct{}{}
}

// IsTombstoned reports whether id was deleted during this session
func (s *Session) IsTombstoned(id string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tombstones[id]
	return ok
}

// Tombstones returns the deleted IDs in no particular order
func (s *Session) Tombstones() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tombstones))
	for id := range s.tombstones {
		ids = append(ids, id)
	}
	return ids
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores a session in the context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the request's session, or nil
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}
