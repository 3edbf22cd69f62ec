package session

import (
	"context"
	"sync"
	"time"
)

// Status enumerates the lifecycle of one interpreted call.
type Status int

const (
	StatusAnswering Status = iota
	StatusActive
	StatusEnding
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusAnswering:
		return "answering"
	case StatusActive:
		return "active"
	case StatusEnding:
		return "ending"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// validTransitions keeps the lifecycle monotonic: a session never re-enters
// an earlier state.
var validTransitions = map[Status][]Status{
	StatusAnswering: {StatusActive, StatusEnding},
	StatusActive:    {StatusEnding},
	StatusEnding:    {StatusEnded},
	StatusEnded:     {},
}

// InvalidTransitionError represents an invalid state transition attempt.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return "invalid session transition from " + e.From.String() + " to " + e.To.String()
}

// CallSession is the stateful representation of one ongoing interpreted
// call. The registry owns every instance; language fields may change
// mid-call and are read by the monitor task each cycle.
type CallSession struct {
	CallID    string
	StartedAt time.Time

	mu     sync.RWMutex
	status Status
	source string
	target string

	ctx    context.Context
	cancel context.CancelFunc
}

func newCallSession(callID, source, target string) *CallSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &CallSession{
		CallID:    callID,
		StartedAt: time.Now(),
		status:    StatusAnswering,
		source:    source,
		target:    target,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Status returns the current lifecycle state.
func (s *CallSession) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Transition moves the session to a new state with validation.
func (s *CallSession) Transition(to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !transitionValid(s.status, to) {
		return &InvalidTransitionError{From: s.status, To: to}
	}
	s.status = to
	return nil
}

func transitionValid(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Languages returns the current source and target language tags.
func (s *CallSession) Languages() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source, s.target
}

func (s *CallSession) setLanguages(source, target string) {
	s.mu.Lock()
	s.source = source
	s.target = target
	s.mu.Unlock()
}

// Context is canceled when the session is retired; the monitor task treats
// it as its stop signal.
func (s *CallSession) Context() context.Context {
	return s.ctx
}
