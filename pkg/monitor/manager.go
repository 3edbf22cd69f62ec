package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/segments"
	"github.com/dragomanhq/dragoman/pkg/session"
)

// Manager starts and tracks the monitor tasks, one per active call.
type Manager struct {
	cfg Config

	mu    sync.Mutex
	tasks map[string]*Task
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:   cfg.withDefaults(),
		tasks: make(map[string]*Task),
	}
}

// Start launches the monitor task for sess. The task removes itself from
// the manager once it reaches Stopped.
func (m *Manager) Start(sess *session.CallSession, src segments.Source) (*Task, error) {
	if sess == nil {
		return nil, errorsx.New(errorsx.ReasonSessionNotFound, "monitor start without a session")
	}
	m.mu.Lock()
	if _, exists := m.tasks[sess.CallID]; exists {
		m.mu.Unlock()
		return nil, errorsx.New(errorsx.ReasonDuplicateSession,
			fmt.Sprintf("monitor already running for call %s", sess.CallID))
	}
	t := newTask(sess, src, m.cfg)
	m.tasks[sess.CallID] = t
	m.mu.Unlock()

	go t.run(func() { m.remove(sess.CallID) })
	return t, nil
}

// Stop signals the call's task and returns immediately; the task drains
// any in-flight cycle on its way to Stopped.
func (m *Manager) Stop(callID string) bool {
	m.mu.Lock()
	t := m.tasks[callID]
	m.mu.Unlock()
	if t == nil {
		return false
	}
	t.Stop()
	return true
}

// Get returns the running task for callID when present.
func (m *Manager) Get(callID string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[callID]
	return t, ok
}

// Count returns the number of tasks not yet Stopped.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// StopAll signals every task, used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()
	for _, t := range tasks {
		t.Stop()
	}
}

// WaitIdle polls until every task has stopped or ctx expires.
func (m *Manager) WaitIdle(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if m.Count() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return m.Count() == 0
		case <-ticker.C:
		}
	}
}

func (m *Manager) remove(callID string) {
	m.mu.Lock()
	delete(m.tasks, callID)
	m.mu.Unlock()
}
