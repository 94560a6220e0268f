package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds the open sales sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     SessionOptions
	idleTTL  time.Duration
	newID    func() string
	logger   *slog.Logger
}

// NewRegistry builds an empty registry. A non-positive idleTTL disables expiry.
func NewRegistry(opts SessionOptions, idleTTL time.Duration) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Registry{
		sessions: make(map[string]*Session),
		opts:     opts,
		idleTTL:  idleTTL,
		newID:    uuid.NewString,
		logger:   logger,
	}
}

// Create opens and registers a new session.
func (r *Registry) Create() *Session {
	s := NewSession(r.newID(), r.opts)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns ErrSessionNotFound for unknown ids.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len counts open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Sessions with a
// submission in flight are kept.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.Idle(now, r.idleTTL) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(r.opts.Clock()); n > 0 {
				r.logger.Info("expired idle sales sessions", slog.Int("count", n))
			}
		}
	}
}
