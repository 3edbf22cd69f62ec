package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dragomanhq/dragoman/pkg/metrics"
	"github.com/dragomanhq/dragoman/pkg/redact"
)

// TimelineObserver writes one JSONL trace per call. Every string field
// passes through redaction so transcripts never reach disk verbatim
// while redaction is enabled.
type TimelineObserver struct {
	dir string

	mu      sync.Mutex
	streams map[string]*timelineStream
}

type timelineStream struct {
	file *os.File
	enc  *json.Encoder
}

type timelineEntry struct {
	Time    time.Time         `json:"time"`
	Event   string            `json:"event"`
	CallID  string            `json:"call_id"`
	CycleID string            `json:"cycle_id,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
	Fields  map[string]any    `json:"fields,omitempty"`
}

func NewTimelineObserver(dir string) *TimelineObserver {
	return &TimelineObserver{dir: dir, streams: make(map[string]*timelineStream)}
}

// RecordEvent appends the event to the trace of the call named in its
// tags. Events without a call_id have no trace to land in and are
// skipped.
func (o *TimelineObserver) RecordEvent(ev metrics.MetricsEvent) {
	callID := ev.Tags["call_id"]
	if callID == "" || strings.TrimSpace(o.dir) == "" {
		return
	}
	entry := timelineEntry{
		Time:    ev.Time.UTC(),
		Event:   ev.Name,
		CallID:  callID,
		CycleID: ev.Tags["cycle_id"],
		Tags:    cloneTags(ev.Tags),
		Fields:  scrubFields(ev.Fields),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.stream(callID)
	if st == nil {
		return
	}
	_ = st.enc.Encode(entry)
}

// Close closes every open trace.
func (o *TimelineObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var errs []error
	for _, st := range o.streams {
		if st != nil && st.file != nil {
			errs = append(errs, st.file.Close())
		}
	}
	o.streams = make(map[string]*timelineStream)
	return errors.Join(errs...)
}

// stream returns the open trace for id, creating it on first use.
// Callers hold o.mu.
func (o *TimelineObserver) stream(id string) *timelineStream {
	stem := fileStem(id)
	if stem == "" {
		return nil
	}
	if st, ok := o.streams[stem]; ok {
		return st
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(o.dir, stem+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	st := &timelineStream{file: f, enc: json.NewEncoder(f)}
	o.streams[stem] = st
	return st
}

// fileStem maps a call ID onto a safe file name.
func fileStem(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func cloneTags(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func scrubFields(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = redact.Text(s)
			continue
		}
		out[k] = v
	}
	return out
}

var _ metrics.Observer = (*TimelineObserver)(nil)
