package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/logging"
)

// Registry owns every active call session. It is the single source of truth
// for "is this call active": the monitor task consults it each cycle
// instead of caching liveness.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*CallSession

	count    atomic.Int64
	draining atomic.Bool
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = logging.NewComponentLogger(nil, "session_registry")
	}
	return &Registry{
		sessions: make(map[string]*CallSession),
		log:      log,
	}
}

// Create registers a new session in the Answering state. At most one
// session may exist per call id.
func (r *Registry) Create(callID, source, target string) (*CallSession, error) {
	if callID == "" {
		return nil, errorsx.New(errorsx.ReasonSessionNotFound, "empty call id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[callID]; ok {
		return nil, errorsx.New(errorsx.ReasonDuplicateSession,
			fmt.Sprintf("session already exists for call %s", callID))
	}
	sess := newCallSession(callID, source, target)
	r.sessions[callID] = sess
	r.count.Add(1)
	r.log.Info("session_created", "call_id", callID, "source", source, "target", target)
	return sess, nil
}

// Get returns the session for callID when present.
func (r *Registry) Get(callID string) (*CallSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[callID]
	return sess, ok
}

// SetLanguages replaces the language pair mid-call. The monitor task picks
// the change up on its next cycle.
func (r *Registry) SetLanguages(callID, source, target string) error {
	r.mu.RLock()
	sess, ok := r.sessions[callID]
	r.mu.RUnlock()
	if !ok {
		return errorsx.New(errorsx.ReasonSessionNotFound,
			fmt.Sprintf("no session for call %s", callID))
	}
	sess.setLanguages(source, target)
	r.log.Info("session_languages_changed", "call_id", callID, "source", source, "target", target)
	return nil
}

// Retire removes the session and signals cancellation to its monitor task.
// The task drains its in-flight cycle before stopping; removal here does
// not wait for that.
func (r *Registry) Retire(callID string) error {
	r.mu.Lock()
	sess, ok := r.sessions[callID]
	if ok {
		delete(r.sessions, callID)
	}
	r.mu.Unlock()
	if !ok {
		return errorsx.New(errorsx.ReasonSessionNotFound,
			fmt.Sprintf("no session for call %s", callID))
	}
	if sess.Status() != StatusEnding {
		if err := sess.Transition(StatusEnding); err != nil {
			r.log.Warn("session_retire_transition", "call_id", callID, "error", err)
		}
	}
	sess.cancel()
	_ = sess.Transition(StatusEnded)
	r.count.Add(-1)
	r.log.Info("session_retired", "call_id", callID)
	return nil
}

// Count returns the number of active sessions.
func (r *Registry) Count() int64 {
	return r.count.Load()
}

// CloseAll retires every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		_ = r.Retire(id)
	}
}

// SetDraining flags the registry so callers can refuse new sessions.
func (r *Registry) SetDraining(v bool) {
	r.draining.Store(v)
}

// Draining reports the drain flag.
func (r *Registry) Draining() bool {
	return r.draining.Load()
}

// WaitForEmpty polls until every session is retired or ctx expires.
func (r *Registry) WaitForEmpty(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if r.Count() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
