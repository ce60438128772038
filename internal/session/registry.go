package session

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxSessions bounds the registry when no limit is configured
const DefaultMaxSessions = 100_000

// Registry hands out sessions by key and forgets sessions that have been idle
// longer than the configured timeout. At most maxSessions are live; starting
// one more drops the least recently seen.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewRegistry creates a registry. maxSessions below 1 falls back to
// DefaultMaxSessions. Call Close to stop the eviction loop.
func NewRegistry(idleTimeout time.Duration, maxSessions int, logger *slog.Logger) *Registry {
	if maxSessions < 1 {
		maxSessions = DefaultMaxSessions
	}
	r := &Registry{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		maxSessions: maxSessions,
		logger:      logger,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	go r.evictLoop()
	return r
}

// Get returns the session for key, starting a fresh one if none is live
func (r *Registry) Get(key string) *Session {
	now := r.now()

	r.mu.Lock()
	s, ok := r.sessions[key]
	var dropped string
	if !ok {
		if len(r.sessions) >= r.maxSessions {
			dropped = r.dropOldestLocked(now)
		}
		s = New(key)
		r.sessions[key] = s
	}
	r.mu.Unlock()

	if dropped != "" {
		r.logger.Warn("session registry full, dropped oldest session",
			"session_id", dropped,
			"max_sessions", r.maxSessions,
		)
	}

	s.touch(now)
	if !ok {
		r.logger.Debug("session started", "session_id", key)
	}
	return s
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict drops sessions idle for longer than the timeout and returns how many were dropped
func (r *Registry) Evict() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, s := range r.sessions {
		if s.idleSince(now) > r.idleTimeout {
			delete(r.sessions, key)
			evicted++
		}
	}
	return evicted
}

// dropOldestLocked removes the session idle the longest. r.mu must be held.
func (r *Registry) dropOldestLocked(now time.Time) string {
	oldest, longest := "", time.Duration(-1)
	for key, s := range r.sessions {
		if idle := s.idleSince(now); idle > longest {
			oldest, longest = key, idle
		}
	}
	delete(r.sessions, oldest)
	return oldest
}

// Close stops the eviction loop
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry) evictLoop() {
	interval := r.idleTimeout / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.logger.Debug("idle sessions evicted", "count", n)
			}
		case <-r.stop:
			return
		}
	}
}
