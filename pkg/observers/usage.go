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
)

// UsageSummary accumulates billable work for one call: characters pushed
// through translation and seconds of synthesized audio.
type UsageSummary struct {
	CallID          string         `json:"call_id,omitempty"`
	Segments        int            `json:"segments"`
	TranslatedChars int            `json:"translated_chars"`
	SynthAudioSec   float64        `json:"synth_audio_seconds"`
	Strategies      map[string]int `json:"strategies,omitempty"`
	RecordedAtUTC   string         `json:"recorded_at_utc"`
}

type UsageObserver struct {
	dir   string
	mu    sync.Mutex
	stats map[string]*UsageSummary
}

func NewUsageObserver(dir string) *UsageObserver {
	return &UsageObserver{dir: dir, stats: make(map[string]*UsageSummary)}
}

func (o *UsageObserver) RecordEvent(ev metrics.MetricsEvent) {
	if strings.TrimSpace(o.dir) == "" {
		return
	}
	callID := ""
	if ev.Tags != nil {
		callID = ev.Tags["call_id"]
	}
	if callID == "" {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	stat := o.stats[callID]
	if stat == nil {
		stat = &UsageSummary{CallID: callID, Strategies: make(map[string]int)}
		o.stats[callID] = stat
	}
	switch ev.Name {
	case "segment_in":
		stat.Segments++
	case "translate_done":
		stat.TranslatedChars += int(ev.Value)
		if s := ev.Tags["strategy"]; s != "" {
			stat.Strategies[s]++
		}
	case "synth_done":
		if ev.Value > 0 {
			stat.SynthAudioSec += ev.Value
		}
	}
}

// Close flushes one usage file per call.
func (o *UsageObserver) Close() error {
	if strings.TrimSpace(o.dir) == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return err
	}
	var errOut error
	for id, stat := range o.stats {
		stat.RecordedAtUTC = time.Now().UTC().Format(time.RFC3339)
		b, err := json.MarshalIndent(stat, "", "  ")
		if err != nil {
			errOut = errors.Join(errOut, err)
			continue
		}
		path := filepath.Join(o.dir, fileStem(id)+".usage.json")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			errOut = errors.Join(errOut, err)
		}
	}
	return errOut
}

var _ metrics.Observer = (*UsageObserver)(nil)
