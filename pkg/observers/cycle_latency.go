package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dragomanhq/dragoman/pkg/metrics"
)

// CycleLatencyObserver correlates the events of one monitor cycle
// (segment_in, translate_done, synth_done, delivered) into a single
// latency log line per cycle.
type CycleLatencyObserver struct {
	mu     sync.Mutex
	cycles map[string]*cycleTrace
	log    *slog.Logger
}

type cycleTrace struct {
	segmentIn     time.Time
	translateDone time.Time
	synthDone     time.Time
	delivered     time.Time
	callID        string
	strategy      string
}

func NewCycleLatencyObserver(log *slog.Logger) *CycleLatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &CycleLatencyObserver{
		cycles: make(map[string]*cycleTrace),
		log:    log,
	}
}

func (o *CycleLatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	cycleID := ""
	if ev.Tags != nil {
		cycleID = ev.Tags["cycle_id"]
	}
	if cycleID == "" {
		return
	}
	o.mu.Lock()
	c := o.cycles[cycleID]
	if c == nil {
		c = &cycleTrace{}
		o.cycles[cycleID] = c
	}
	switch ev.Name {
	case "segment_in":
		if c.segmentIn.IsZero() {
			c.segmentIn = ev.Time
		}
		if c.callID == "" && ev.Tags != nil {
			c.callID = ev.Tags["call_id"]
		}
	case "translate_done":
		if c.translateDone.IsZero() {
			c.translateDone = ev.Time
		}
		if ev.Tags != nil {
			c.strategy = ev.Tags["strategy"]
		}
	case "synth_done":
		if c.synthDone.IsZero() {
			c.synthDone = ev.Time
		}
	case "delivered":
		c.delivered = ev.Time
	}
	if !c.delivered.IsZero() {
		o.logCycleLocked(cycleID, c)
		delete(o.cycles, cycleID)
	}
	o.mu.Unlock()
}

func (o *CycleLatencyObserver) logCycleLocked(cycleID string, c *cycleTrace) {
	translateMs := durationMs(c.segmentIn, c.translateDone)
	synthMs := durationMs(c.translateDone, c.synthDone)
	deliverMs := durationMs(c.synthDone, c.delivered)
	cycleMs := durationMs(c.segmentIn, c.delivered)
	o.log.Info("cycle_latency",
		"cycle_id", cycleID,
		"call_id", c.callID,
		"strategy", c.strategy,
		"translate_ms", translateMs,
		"synth_ms", synthMs,
		"deliver_ms", deliverMs,
		"cycle_ms", cycleMs,
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
