package runner

import (
	"bytes"
	"context"
	"os"

	"github.com/dimiro1/banner"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	State() State
}

// Hooks run inside the lifecycle: OnStart once the engine is serving,
// OnStop after draining finishes.
type Hooks struct {
	OnStart func()
	OnStop  func()
}

// Drainer performs the orderly part of shutdown: stop intake, let
// in-flight call cycles finish, close what remains.
type Drainer interface {
	Drain() error
}

type DrainerFunc func() error

func (f DrainerFunc) Drain() error { return f() }

const EngineVersion = "dev"

const bannerTemplate = "{{ .Title \"DRAGOMAN\" \"\" 0 }}\nVersion: " + EngineVersion + "\n"

func PrintBanner() {
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(bannerTemplate))
}
