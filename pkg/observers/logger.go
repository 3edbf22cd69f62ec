package observers

import (
	"context"
	"log/slog"

	"github.com/dragomanhq/dragoman/pkg/metrics"
	"github.com/dragomanhq/dragoman/pkg/redact"
)

// LoggerObserver mirrors events to the debug log. String fields pass
// through redaction so transcripts obey the same privacy setting as the
// on-disk artifacts.
type LoggerObserver struct {
	log *slog.Logger
}

func NewLoggerObserver(log *slog.Logger) *LoggerObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LoggerObserver{log: log}
}

func (o *LoggerObserver) RecordEvent(ev metrics.MetricsEvent) {
	attrs := make([]slog.Attr, 0, 3+len(ev.Tags)+len(ev.Fields))
	attrs = append(attrs, slog.String("name", ev.Name), slog.Time("time", ev.Time))
	if ev.Value != 0 {
		attrs = append(attrs, slog.Float64("value", ev.Value))
	}
	for k, v := range ev.Tags {
		attrs = append(attrs, slog.String(k, v))
	}
	for k, v := range ev.Fields {
		if s, ok := v.(string); ok {
			attrs = append(attrs, slog.String(k, redact.Text(s)))
			continue
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	o.log.LogAttrs(context.Background(), slog.LevelDebug, "event", attrs...)
}

// MultiObserver fans one event out to every registered observer, in
// registration order.
type MultiObserver []metrics.Observer

func NewMultiObserver(list ...metrics.Observer) MultiObserver {
	return MultiObserver(list)
}

func (m MultiObserver) RecordEvent(ev metrics.MetricsEvent) {
	for _, obs := range m {
		if obs != nil {
			obs.RecordEvent(ev)
		}
	}
}
