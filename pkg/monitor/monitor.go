// Package monitor runs one task per active call. Each task waits for
// recognized speech segments, pushes them through translation and
// synthesis, and hands the resulting audio to the playback collaborator.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/metrics"
	"github.com/dragomanhq/dragoman/pkg/session"
	"github.com/dragomanhq/dragoman/pkg/synthesis"
	"github.com/dragomanhq/dragoman/pkg/translate"
)

// State tracks the lifecycle of a single monitor task. Transitions only
// move forward: Running, then Stopping while an in-flight cycle drains,
// then Stopped.
type State int32

const (
	StateRunning State = iota
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Translator is the slice of the translation pipeline a task needs.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) translate.Result
}

// Synthesizer is the slice of the synthesis handoff a task needs. Silence
// is the substitute played when the engine fails outright.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (synthesis.AudioRef, error)
	Silence() synthesis.AudioRef
}

// Player delivers synthesized audio back into the call.
type Player interface {
	Play(ctx context.Context, callID string, audio synthesis.AudioRef) error
}

// Config wires one Manager and every task it starts.
type Config struct {
	Registry    *session.Registry
	Translator  Translator
	Synthesizer Synthesizer
	Player      Player
	Observer    metrics.Observer

	// CycleBudget bounds the translation of one segment relative to the
	// start of its cycle.
	CycleBudget time.Duration

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.CycleBudget <= 0 {
		c.CycleBudget = 10 * time.Second
	}
	if c.Player == nil {
		c.Player = NewLogPlayer(c.Logger)
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "monitor")
	}
	return c
}
