package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// LifecycleRunner walks an engine through new, starting, running,
// draining and stopped. Run blocks until Stop is called or the caller's
// context ends; both paths share a single drain pass.
type LifecycleRunner struct {
	phase     atomic.Int32
	root      context.Context
	halt      context.CancelFunc
	drainOnce sync.Once
	drainErr  error
	hooks     Hooks
	drainer   Drainer
	timeout   time.Duration
}

func NewLifecycleRunner(drainer Drainer, hooks Hooks, timeout time.Duration) *LifecycleRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	root, halt := context.WithCancel(context.Background())
	return &LifecycleRunner{
		root:    root,
		halt:    halt,
		hooks:   hooks,
		drainer: drainer,
		timeout: timeout,
	}
}

// Run accepts exactly one call per runner; later calls are rejected.
func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.phase.CompareAndSwap(int32(StateNew), int32(StateStarting)) {
		return fmt.Errorf("invalid state transition from %s", r.State())
	}
	PrintBanner()
	if ctx != nil {
		go r.bridge(ctx)
	}
	if r.hooks.OnStart != nil {
		r.hooks.OnStart()
	}
	r.phase.Store(int32(StateRunning))
	<-r.root.Done()
	return r.shutdown()
}

func (r *LifecycleRunner) Stop() error {
	r.halt()
	return r.shutdown()
}

func (r *LifecycleRunner) State() State {
	return State(r.phase.Load())
}

// bridge cancels the runner when the caller's context ends. The runner
// keeps its own root context so a concurrent Stop always cancels the
// context Run waits on.
func (r *LifecycleRunner) bridge(ctx context.Context) {
	select {
	case <-ctx.Done():
		r.halt()
	case <-r.root.Done():
	}
}

func (r *LifecycleRunner) shutdown() error {
	r.drainOnce.Do(func() {
		r.phase.Store(int32(StateDraining))
		r.drainErr = r.drain()
		if r.hooks.OnStop != nil {
			r.hooks.OnStop()
		}
		r.phase.Store(int32(StateStopped))
	})
	return r.drainErr
}

func (r *LifecycleRunner) drain() error {
	if r.drainer == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- r.drainer.Drain() }()
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return errors.New("drain timeout")
	}
}
