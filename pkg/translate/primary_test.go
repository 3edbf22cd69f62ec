package translate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
)

type fakeModel struct {
	out string
}

func (m fakeModel) Translate(context.Context, string) (string, error) {
	return m.out, nil
}

func TestModelStrategyLoadsPairOnce(t *testing.T) {
	var loads atomic.Int32
	strategy := NewModelStrategy(ModelConfig{
		Loader: func(ctx context.Context, pair, modelName string) (Model, error) {
			loads.Add(1)
			time.Sleep(30 * time.Millisecond)
			return fakeModel{out: "Hola"}, nil
		},
	})

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := strategy.Translate(context.Background(), "Hello", "en-US", "es-CO")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("translate error: %v", err)
		}
	}
	if got := loads.Load(); got != 1 {
		t.Fatalf("loader ran %d times for one pair", got)
	}

	// Later requests reuse the cached model.
	if _, err := strategy.Translate(context.Background(), "World", "en-US", "es-CO"); err != nil {
		t.Fatalf("translate error: %v", err)
	}
	if got := loads.Load(); got != 1 {
		t.Fatalf("loader reran for a cached pair: %d", got)
	}
}

func TestModelStrategyUnsupportedPair(t *testing.T) {
	var loads atomic.Int32
	strategy := NewModelStrategy(ModelConfig{
		Loader: func(ctx context.Context, pair, modelName string) (Model, error) {
			loads.Add(1)
			return fakeModel{out: "x"}, nil
		},
	})

	_, err := strategy.Translate(context.Background(), "Hallo", "de", "ja")
	if err == nil {
		t.Fatal("expected error for unsupported pair")
	}
	if !errorsx.HasReason(err, errorsx.ReasonTranslateStrategy) {
		t.Fatalf("reason=%v", errorsx.Reason(err))
	}
	if loads.Load() != 0 {
		t.Fatal("loader ran for unsupported pair")
	}
}

func TestModelStrategyRetriesFailedLoad(t *testing.T) {
	var loads atomic.Int32
	strategy := NewModelStrategy(ModelConfig{
		Loader: func(ctx context.Context, pair, modelName string) (Model, error) {
			if loads.Add(1) == 1 {
				return nil, errors.New("download interrupted")
			}
			return fakeModel{out: "Privet"}, nil
		},
	})

	if _, err := strategy.Translate(context.Background(), "Hello", "en", "ru"); err == nil {
		t.Fatal("expected first load to fail")
	}
	out, err := strategy.Translate(context.Background(), "Hello", "en", "ru")
	if err != nil {
		t.Fatalf("second translate error: %v", err)
	}
	if out != "Privet" {
		t.Fatalf("out=%q", out)
	}
	if loads.Load() != 2 {
		t.Fatalf("loader ran %d times", loads.Load())
	}
}

func TestModelStrategyWithoutLoader(t *testing.T) {
	strategy := NewModelStrategy(ModelConfig{})
	_, err := strategy.Translate(context.Background(), "Hello", "en", "es")
	if !errorsx.HasReason(err, errorsx.ReasonTranslateModelLoad) {
		t.Fatalf("reason=%v", errorsx.Reason(err))
	}
}
