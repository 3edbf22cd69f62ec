package metrics

import (
	"sync"
	"sync/atomic"
)

// AsyncObserver decouples event recording from the monitor loop:
// RecordEvent never blocks a call cycle, overflow is counted and
// dropped. Close drains whatever is queued before returning, so
// file-backed observers behind it can be closed immediately afterwards.
type AsyncObserver struct {
	inner   Observer
	ch      chan MetricsEvent
	quit    chan struct{}
	done    chan struct{}
	dropped atomic.Int64
	closed  atomic.Bool
	once    sync.Once
}

func NewAsyncObserver(inner Observer, buffer int) *AsyncObserver {
	if buffer <= 0 {
		buffer = 256
	}
	a := &AsyncObserver{
		inner: inner,
		ch:    make(chan MetricsEvent, buffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

// RecordEvent enqueues without blocking. Events arriving after Close or
// past a full buffer are dropped and counted.
func (a *AsyncObserver) RecordEvent(ev MetricsEvent) {
	if a == nil {
		return
	}
	if a.closed.Load() {
		a.dropped.Add(1)
		return
	}
	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
}

// Dropped reports how many events overflowed the buffer.
func (a *AsyncObserver) Dropped() int64 {
	return a.dropped.Load()
}

func (a *AsyncObserver) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.quit)
		<-a.done
	})
}

// loop forwards events until quit, then drains the remaining buffer.
// The event channel itself is never closed, so a racing RecordEvent can
// at worst enqueue an event nobody reads.
func (a *AsyncObserver) loop() {
	defer close(a.done)
	for {
		select {
		case ev := <-a.ch:
			a.inner.RecordEvent(ev)
		case <-a.quit:
			for {
				select {
				case ev := <-a.ch:
					a.inner.RecordEvent(ev)
				default:
					return
				}
			}
		}
	}
}
