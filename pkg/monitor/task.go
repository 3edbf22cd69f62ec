package monitor

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dragomanhq/dragoman/pkg/langtag"
	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/metrics"
	"github.com/dragomanhq/dragoman/pkg/redact"
	"github.com/dragomanhq/dragoman/pkg/segments"
	"github.com/dragomanhq/dragoman/pkg/session"
	"github.com/dragomanhq/dragoman/pkg/translate"
)

// Task is the per-call monitor loop. Construction happens through
// Manager.Start, which guarantees a single task per call.
type Task struct {
	callID string
	src    segments.Source
	cfg    Config

	state    int32
	waitCtx  context.Context
	waitStop context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
	log      *slog.Logger
}

func newTask(sess *session.CallSession, src segments.Source, cfg Config) *Task {
	// Retiring the session cancels its context, which wakes the task out
	// of a segment wait.
	waitCtx, waitStop := context.WithCancel(sess.Context())
	return &Task{
		callID:   sess.CallID,
		src:      src,
		cfg:      cfg,
		state:    int32(StateRunning),
		waitCtx:  waitCtx,
		waitStop: waitStop,
		done:     make(chan struct{}),
		log:      logging.NewCallLogger(cfg.Logger, sess.CallID),
	}
}

func (t *Task) CallID() string { return t.callID }

func (t *Task) State() State {
	return State(atomic.LoadInt32(&t.state))
}

// Done is closed once the task has reached Stopped.
func (t *Task) Done() <-chan struct{} { return t.done }

// Stop asks the task to stop. A cycle already in flight finishes first;
// only the wait for the next segment is interrupted.
func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		t.casState(StateRunning, StateStopping)
		t.waitStop()
	})
}

func (t *Task) run(onExit func()) {
	defer func() {
		t.casState(StateRunning, StateStopping)
		if err := t.src.Close(); err != nil {
			t.log.Debug("segment_source_close", "error", err)
		}
		t.casState(StateStopping, StateStopped)
		if onExit != nil {
			onExit()
		}
		close(t.done)
		t.log.Info("monitor_stopped")
	}()

	t.log.Info("monitor_running")
	for t.nextCycleAllowed() {
		seg, err := t.src.NextSegment(t.waitCtx)
		if err != nil {
			switch {
			case errors.Is(err, segments.ErrClosed):
				t.log.Info("segment_source_drained")
			case t.waitCtx.Err() != nil:
				// stop or retire arrived during the wait
			default:
				t.log.Warn("segment_wait_failed", "error", err)
			}
			return
		}
		t.cycle(seg)
	}
}

// nextCycleAllowed consults the registry before every wait. The registry
// is the source of truth for liveness, not anything cached on the task.
func (t *Task) nextCycleAllowed() bool {
	if t.State() != StateRunning {
		return false
	}
	sess, ok := t.cfg.Registry.Get(t.callID)
	if !ok || sess.Status() != session.StatusActive {
		t.casState(StateRunning, StateStopping)
		return false
	}
	return true
}

func (t *Task) cycle(seg segments.Segment) {
	cycleID := uuid.NewString()
	start := time.Now()
	// The cycle owns a fresh context: a stop signal drains the cycle
	// instead of interrupting it, and the translation deadline bounds how
	// long draining can take.
	ctx := context.Background()

	sess, ok := t.cfg.Registry.Get(t.callID)
	if !ok {
		return
	}
	source, target := sess.Languages()
	if seg.Language != "" && !langtag.Same(seg.Language, source) {
		t.log.Debug("segment_language_differs",
			"segment_language", seg.Language,
			"session_source", source)
	}

	metrics.Emit(t.cfg.Observer, "segment_in", float64(len(seg.Text)), map[string]string{
		"call_id":  t.callID,
		"cycle_id": cycleID,
	})

	res := t.cfg.Translator.Translate(ctx, translate.Request{
		Text:     seg.Text,
		Source:   source,
		Target:   target,
		CallID:   t.callID,
		CycleID:  cycleID,
		Deadline: start.Add(t.cfg.CycleBudget),
	})
	if res.Err != nil {
		t.log.Warn("translation_degraded", "cycle_id", cycleID, "error", res.Err)
	}
	metrics.Emit(t.cfg.Observer, "translate_done", float64(len(res.TranslatedText)), map[string]string{
		"call_id":   t.callID,
		"cycle_id":  cycleID,
		"strategy":  res.Strategy.String(),
		"timed_out": strconv.FormatBool(res.TimedOut),
	})

	audio, err := t.cfg.Synthesizer.Synthesize(ctx, res.TranslatedText, target)
	if err != nil {
		t.log.Warn("synthesis_failed_substituting_silence",
			"cycle_id", cycleID,
			"error", err)
		audio = t.cfg.Synthesizer.Silence()
	}
	metrics.Emit(t.cfg.Observer, "synth_done", audio.Duration.Seconds(), map[string]string{
		"call_id":  t.callID,
		"cycle_id": cycleID,
	})

	playErr := t.cfg.Player.Play(ctx, t.callID, audio)
	if playErr != nil {
		t.log.Error("playback_delivery_failed", "cycle_id", cycleID, "error", playErr)
	}
	metrics.Emit(t.cfg.Observer, "delivered", float64(time.Since(start).Milliseconds()), map[string]string{
		"call_id":  t.callID,
		"cycle_id": cycleID,
		"ok":       strconv.FormatBool(playErr == nil),
	})

	t.log.Debug("cycle_complete",
		"cycle_id", cycleID,
		"pair", langtag.PairKey(source, target),
		"strategy", res.Strategy.String(),
		"timed_out", res.TimedOut,
		"text", redact.Transcript(res.TranslatedText, 48),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

func (t *Task) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&t.state, int32(from), int32(to))
}
