package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"video-compressor/internal/compressor"
	"video-compressor/internal/logging"
	"video-compressor/internal/metrics"

	"github.com/google/uuid"
)

var (
	// ErrNotFound reports an unknown, expired or malformed session id.
	ErrNotFound = errors.New("session not found")
	// ErrLimitReached reports that MaxSessions sessions are already open.
	ErrLimitReached = errors.New("too many active sessions")
)

// Factory builds the compression session for a new id.
type Factory func(id string) *compressor.Session

// Config configures a Registry.
type Config struct {
	// TTL is how long a session may stay untouched (default 1h).
	TTL time.Duration
	// MaxSessions bounds concurrently open sessions; 0 means unlimited.
	MaxSessions int
	// ReapInterval is how often expired sessions are closed (default TTL/4,
	// at most one minute).
	ReapInterval time.Duration
	// New creates sessions. Required.
	New Factory
}

type entry struct {
	session    *compressor.Session
	lastAccess time.Time
}

// Registry maps session ids to compression sessions.
type Registry struct {
	cfg Config
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry

	stopOnce sync.Once
	stopChan chan struct{}
}

// New creates an empty registry. Call Start to run the reaper.
func New(cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = min(cfg.TTL/4, time.Minute)
	}
	return &Registry{
		cfg:      cfg,
		now:      time.Now,
		entries:  make(map[string]*entry),
		stopChan: make(chan struct{}),
	}
}

// Create opens a new session and returns its id.
func (r *Registry) Create() (string, *compressor.Session, error) {
	if r.cfg.MaxSessions > 0 && r.Len() >= r.cfg.MaxSessions {
		// Make room from sessions that already outlived their TTL.
		r.Reap()
	}

	id := uuid.NewString()

	r.mu.Lock()
	if r.cfg.MaxSessions > 0 && len(r.entries) >= r.cfg.MaxSessions {
		r.mu.Unlock()
		return "", nil, fmt.Errorf("%w (limit %d)", ErrLimitReached, r.cfg.MaxSessions)
	}
	s := r.cfg.New(id)
	r.entries[id] = &entry{session: s, lastAccess: r.now()}
	count := len(r.entries)
	r.mu.Unlock()

	metrics.SessionsCreatedTotal.Inc()
	logging.Debug("Session %s created (%d active)", id, count)
	return id, s, nil
}

// Get returns the session for id and marks it as used.
func (r *Registry) Get(id string) (*compressor.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastAccess = r.now()
	return e.session, nil
}

// Touch marks the session as used without returning it. Long-lived
// connections call it to keep their session from expiring.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.lastAccess = r.now()
	}
}

// Remove closes and forgets the session. It reports whether id existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.session.Close()
	logging.Debug("Session %s removed", id)
	return true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reap closes every session idle for longer than the TTL and returns how
// many were closed.
func (r *Registry) Reap() int {
	cutoff := r.now().Add(-r.cfg.TTL)

	var expired []*compressor.Session
	r.mu.Lock()
	for id, e := range r.entries {
		if e.lastAccess.Before(cutoff) {
			expired = append(expired, e.session)
			delete(r.entries, id)
			logging.Info("Session %s expired after %v idle", id, r.now().Sub(e.lastAccess).Round(time.Second))
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		metrics.SessionsExpiredTotal.Add(float64(len(expired)))
	}
	return len(expired)
}

// Start runs the reaper in the background until Stop is called.
func (r *Registry) Start() {
	go r.reapLoop()
}

func (r *Registry) reapLoop() {
	ticker := time.NewTicker(r.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Reap()
		case <-r.stopChan:
			return
		}
	}
}

// Stop ends the reaper (if started) and closes every open session.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})

	r.mu.Lock()
	sessions := make([]*compressor.Session, 0, len(r.entries))
	for id, e := range r.entries {
		sessions = append(sessions, e.session)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *compressor.Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()

	if len(sessions) > 0 {
		logging.Info("Closed %d open sessions", len(sessions))
	}
}

// GetStats implements metrics.StatsProvider.
func (r *Registry) GetStats() metrics.Stats {
	r.mu.RLock()
	sessions := make([]*compressor.Session, 0, len(r.entries))
	for _, e := range r.entries {
		sessions = append(sessions, e.session)
	}
	r.mu.RUnlock()

	stats := metrics.Stats{
		ActiveSessions: len(sessions),
		ByStage:        make(map[string]int, len(metrics.Stages)),
	}
	for _, s := range sessions {
		stats.ByStage[s.Stage().String()]++
	}
	return stats
}
