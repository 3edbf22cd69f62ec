package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/session"
)

func TestManagerOneTaskPerCall(t *testing.T) {
	reg := session.NewRegistry(nil)
	sess := activeSession(t, reg, "call-1")
	m := NewManager(Config{Registry: reg, Translator: &scriptTranslator{}, Synthesizer: &stubSynth{}, Player: newCapturePlayer()})

	task, err := m.Start(sess, newFeedSource())
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer func() {
		task.Stop()
		awaitDone(t, task)
	}()

	if _, err := m.Start(sess, newFeedSource()); !errorsx.HasReason(err, errorsx.ReasonDuplicateSession) {
		t.Fatalf("second start err=%v", err)
	}
}

func TestManagerStartWithoutSession(t *testing.T) {
	m := NewManager(Config{Registry: session.NewRegistry(nil), Translator: &scriptTranslator{}, Synthesizer: &stubSynth{}})
	if _, err := m.Start(nil, newFeedSource()); !errorsx.HasReason(err, errorsx.ReasonSessionNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestManagerStopUnknownCall(t *testing.T) {
	m := NewManager(Config{Registry: session.NewRegistry(nil), Translator: &scriptTranslator{}, Synthesizer: &stubSynth{}})
	if m.Stop("no-such-call") {
		t.Fatal("stop reported a task that never existed")
	}
}

func TestManagerTaskRemovesItselfWhenStopped(t *testing.T) {
	reg := session.NewRegistry(nil)
	sess := activeSession(t, reg, "call-1")
	m := NewManager(Config{Registry: reg, Translator: &scriptTranslator{}, Synthesizer: &stubSynth{}, Player: newCapturePlayer()})

	task, err := m.Start(sess, newFeedSource())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Count() != 1 {
		t.Fatalf("count=%d", m.Count())
	}
	if _, ok := m.Get("call-1"); !ok {
		t.Fatal("task not tracked")
	}

	task.Stop()
	awaitDone(t, task)

	if m.Count() != 0 {
		t.Fatalf("count after stop=%d", m.Count())
	}
	if _, ok := m.Get("call-1"); ok {
		t.Fatal("stopped task still tracked")
	}
}

func TestManagerStopAllAndWaitIdle(t *testing.T) {
	reg := session.NewRegistry(nil)
	m := NewManager(Config{Registry: reg, Translator: &scriptTranslator{}, Synthesizer: &stubSynth{}, Player: newCapturePlayer()})

	for _, id := range []string{"call-1", "call-2"} {
		sess := activeSession(t, reg, id)
		if _, err := m.Start(sess, newFeedSource()); err != nil {
			t.Fatalf("start %s: %v", id, err)
		}
	}
	if m.Count() != 2 {
		t.Fatalf("count=%d", m.Count())
	}

	m.StopAll()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !m.WaitIdle(ctx, 10*time.Millisecond) {
		t.Fatal("tasks did not drain")
	}
	if m.Count() != 0 {
		t.Fatalf("count after drain=%d", m.Count())
	}
}
