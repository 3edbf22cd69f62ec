package segments

import (
	"context"
	"sync"
	"time"
)

// ScriptConfig drives the polling source: a fixed list of utterances
// emitted one per interval, standing in for a live recognizer during
// development and tests.
type ScriptConfig struct {
	Lines    []string
	Language string
	Interval time.Duration
	Loop     bool
}

func (c ScriptConfig) withDefaults() ScriptConfig {
	if c.Language == "" {
		c.Language = "en-US"
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	return c
}

// Script is the polling adapter: each NextSegment waits one interval, then
// hands out the next line. The wait is cancellable between segments.
type Script struct {
	cfg ScriptConfig

	mu  sync.Mutex
	idx int
}

func NewScript(cfg ScriptConfig) *Script {
	return &Script{cfg: cfg.withDefaults()}
}

func (s *Script) Start(ctx context.Context) error { return nil }

func (s *Script) NextSegment(ctx context.Context) (Segment, error) {
	s.mu.Lock()
	if len(s.cfg.Lines) == 0 || (!s.cfg.Loop && s.idx >= len(s.cfg.Lines)) {
		s.mu.Unlock()
		return Segment{}, ErrClosed
	}
	line := s.cfg.Lines[s.idx%len(s.cfg.Lines)]
	s.idx++
	s.mu.Unlock()

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Segment{}, ctx.Err()
	case <-timer.C:
	}
	return Segment{Text: line, Language: s.cfg.Language, At: time.Now()}, nil
}

func (s *Script) Close() error { return nil }

var _ Source = (*Script)(nil)
