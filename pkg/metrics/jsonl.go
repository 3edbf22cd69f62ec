package metrics

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/dragomanhq/dragoman/pkg/redact"
)

// JSONLObserver streams every event as one JSON object per line. It is
// the firehose counterpart to the per-call timeline artifacts: a single
// ordered stream suitable for offline analysis of a whole run. String
// fields pass through redaction before they reach the writer.
type JSONLObserver struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLObserver(w io.Writer) *JSONLObserver {
	if w == nil {
		w = io.Discard
	}
	return &JSONLObserver{enc: json.NewEncoder(w)}
}

type jsonlRecord struct {
	Name   string            `json:"name"`
	Time   time.Time         `json:"time"`
	Value  float64           `json:"value,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
	Fields map[string]any    `json:"fields,omitempty"`
}

func (o *JSONLObserver) RecordEvent(ev MetricsEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_ = o.enc.Encode(jsonlRecord{
		Name:   ev.Name,
		Time:   ev.Time.UTC(),
		Value:  ev.Value,
		Tags:   ev.Tags,
		Fields: redactFields(ev.Fields),
	})
}

func redactFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			out[k] = redact.Text(s)
			continue
		}
		out[k] = v
	}
	return out
}
