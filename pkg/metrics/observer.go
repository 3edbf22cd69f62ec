package metrics

import "time"

// MetricsEvent is one point-in-time measurement from the call machinery
// (segment received, translation done, synthesis done, delivery).
type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

// Emit records an event, tolerating a nil observer so call sites stay flat.
func Emit(obs Observer, name string, value float64, tags map[string]string) {
	if obs == nil {
		return
	}
	obs.RecordEvent(MetricsEvent{Name: name, Time: time.Now(), Value: value, Tags: tags})
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
