package segments

import (
	"context"
	"testing"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
)

func TestScriptEmitsLinesInOrder(t *testing.T) {
	src := NewScript(ScriptConfig{
		Lines:    []string{"Hello there.", "How are you?"},
		Language: "en-US",
		Interval: 5 * time.Millisecond,
	})
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	first, err := src.NextSegment(context.Background())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.Text != "Hello there." || first.Language != "en-US" {
		t.Fatalf("first = %+v", first)
	}
	second, err := src.NextSegment(context.Background())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Text != "How are you?" {
		t.Fatalf("second = %+v", second)
	}

	_, err = src.NextSegment(context.Background())
	if !errorsx.HasReason(err, errorsx.ReasonSourceClosed) {
		t.Fatalf("expected source_closed after script end, got %v", err)
	}
}

func TestScriptWaitIsCancellable(t *testing.T) {
	src := NewScript(ScriptConfig{Lines: []string{"line"}, Interval: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := src.NextSegment(ctx)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("cancellation did not interrupt the interval wait")
	}
}

func TestAssemblerFoldsPartials(t *testing.T) {
	asm := NewAssembler(AssemblerConfig{})
	if _, done := asm.Add("Good", "en-US", false); done {
		t.Fatalf("incomplete utterance flushed early")
	}
	seg, done := asm.Add("morning everyone.", "en-US", false)
	if !done {
		t.Fatalf("sentence punctuation should close the utterance")
	}
	if seg.Text != "Good morning everyone." {
		t.Fatalf("assembled %q", seg.Text)
	}
	if seg.Language != "en-US" {
		t.Fatalf("language %q", seg.Language)
	}
}

func TestAssemblerFinalFlagCloses(t *testing.T) {
	asm := NewAssembler(AssemblerConfig{})
	seg, done := asm.Add("no punctuation here", "ru-RU", true)
	if !done {
		t.Fatalf("final flag should close the utterance")
	}
	if seg.Text != "no punctuation here" {
		t.Fatalf("assembled %q", seg.Text)
	}
}

func TestAssemblerIdleFlush(t *testing.T) {
	asm := NewAssembler(AssemblerConfig{FlushTimeout: 10 * time.Millisecond})
	asm.Add("dangling clause", "en-US", false)
	if _, done := asm.FlushIfIdle(); done {
		t.Fatalf("idle flush fired before the timeout")
	}
	time.Sleep(25 * time.Millisecond)
	seg, done := asm.FlushIfIdle()
	if !done {
		t.Fatalf("idle flush should fire after the timeout")
	}
	if seg.Text != "dangling clause" {
		t.Fatalf("assembled %q", seg.Text)
	}
}

func TestAssemblerDropsTooShort(t *testing.T) {
	asm := NewAssembler(AssemblerConfig{MinLen: 8})
	if _, done := asm.Add("Hi.", "en-US", true); done {
		t.Fatalf("segment below MinLen must be dropped")
	}
}
