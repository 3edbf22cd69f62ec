package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
)

func TestCreateRejectsDuplicates(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := reg.Create("call-1", "en-US", "es-CO"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := reg.Create("call-1", "en-US", "es-CO")
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonDuplicateSession) {
		t.Fatalf("expected duplicate_session, got %s", errorsx.Reason(err))
	}
	if reg.Count() != 1 {
		t.Fatalf("count = %d", reg.Count())
	}
}

func TestRetireSignalsCancellation(t *testing.T) {
	reg := NewRegistry(nil)
	sess, err := reg.Create("call-1", "en-US", "es-CO")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sess.Transition(StatusActive); err != nil {
		t.Fatalf("to active: %v", err)
	}

	if err := reg.Retire("call-1"); err != nil {
		t.Fatalf("retire: %v", err)
	}
	select {
	case <-sess.Context().Done():
	case <-time.After(time.Second):
		t.Fatalf("retire did not cancel the session context")
	}
	if sess.Status() != StatusEnded {
		t.Fatalf("status after retire = %s", sess.Status())
	}
	if _, ok := reg.Get("call-1"); ok {
		t.Fatalf("retired session still present")
	}
	if reg.Count() != 0 {
		t.Fatalf("count = %d", reg.Count())
	}
}

func TestRetireUnknownCall(t *testing.T) {
	reg := NewRegistry(nil)
	err := reg.Retire("missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonSessionNotFound) {
		t.Fatalf("expected session_not_found, got %s", errorsx.Reason(err))
	}
}

func TestSetLanguagesVisibleToConcurrentReaders(t *testing.T) {
	reg := NewRegistry(nil)
	sess, err := reg.Create("call-1", "en-US", "es-CO")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				sess.Languages()
			}
		}
	}()

	if err := reg.SetLanguages("call-1", "ru-RU", "en-US"); err != nil {
		t.Fatalf("set languages: %v", err)
	}
	close(stop)
	wg.Wait()

	src, tgt := sess.Languages()
	if src != "ru-RU" || tgt != "en-US" {
		t.Fatalf("languages after change %s/%s", src, tgt)
	}

	if err := reg.SetLanguages("missing", "a", "b"); !errorsx.HasReason(err, errorsx.ReasonSessionNotFound) {
		t.Fatalf("expected session_not_found, got %v", err)
	}
}

func TestWaitForEmpty(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := reg.Create("call-1", "en-US", "es-CO"); err != nil {
		t.Fatalf("create: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = reg.Retire("call-1")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !reg.WaitForEmpty(ctx, 10*time.Millisecond) {
		t.Fatalf("WaitForEmpty timed out")
	}
}

func TestCloseAll(t *testing.T) {
	reg := NewRegistry(nil)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := reg.Create(id, "en-US", "es-CO"); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	reg.SetDraining(true)
	reg.CloseAll()
	if reg.Count() != 0 {
		t.Fatalf("count after CloseAll = %d", reg.Count())
	}
	if !reg.Draining() {
		t.Fatalf("draining flag lost")
	}
}
