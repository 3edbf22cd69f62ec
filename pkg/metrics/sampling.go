package metrics

import (
	"math"
	"sync/atomic"
)

// SamplingObserver forwards roughly one event in every 1/rate to the
// wrapped observer. It thins high-volume sinks such as per-event logging
// without touching observers that need the full stream.
type SamplingObserver struct {
	inner Observer
	every uint64
	seen  atomic.Uint64
}

// NewSamplingObserver clamps rate to [0, 1]; 0 drops everything, 1
// forwards everything.
func NewSamplingObserver(inner Observer, rate float64) *SamplingObserver {
	s := &SamplingObserver{inner: inner}
	switch {
	case rate <= 0:
		s.every = 0
	case rate >= 1:
		s.every = 1
	default:
		s.every = uint64(math.Round(1.0 / rate))
		if s.every == 0 {
			s.every = 1
		}
	}
	return s
}

func (s *SamplingObserver) RecordEvent(ev MetricsEvent) {
	switch s.every {
	case 0:
		return
	case 1:
		s.inner.RecordEvent(ev)
	default:
		if s.seen.Add(1)%s.every == 0 {
			s.inner.RecordEvent(ev)
		}
	}
}
