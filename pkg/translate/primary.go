package translate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/langtag"
	"github.com/dragomanhq/dragoman/pkg/logging"
)

// Model is one loaded translation model, bound to a single language pair.
type Model interface {
	Translate(ctx context.Context, text string) (string, error)
}

// ModelLoader materializes the model backing a language pair. Loading is
// expected to be expensive (disk, download, GPU warmup).
type ModelLoader func(ctx context.Context, pair, modelName string) (Model, error)

// DefaultCatalog lists the language pairs with a dedicated model build.
func DefaultCatalog() map[string]string {
	return map[string]string{
		"en->es": "opus-mt-en-es",
		"es->en": "opus-mt-es-en",
		"en->ru": "opus-mt-en-ru",
		"ru->en": "opus-mt-ru-en",
	}
}

type ModelConfig struct {
	Catalog map[string]string
	Loader  ModelLoader
	Logger  *slog.Logger
}

func (c ModelConfig) withDefaults() ModelConfig {
	if c.Catalog == nil {
		c.Catalog = DefaultCatalog()
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "translate_model")
	}
	return c
}

// ModelStrategy serves translations from in-process models. Models load
// lazily on the first request for their pair; concurrent first requests
// collapse into a single load. A failed load is not cached, so the next
// request retries it.
type ModelStrategy struct {
	cfg    ModelConfig
	group  singleflight.Group
	mu     sync.RWMutex
	loaded map[string]Model
}

func NewModelStrategy(cfg ModelConfig) *ModelStrategy {
	return &ModelStrategy{cfg: cfg.withDefaults(), loaded: make(map[string]Model)}
}

func (s *ModelStrategy) Kind() StrategyKind { return StrategyPrimary }

func (s *ModelStrategy) Translate(ctx context.Context, text, source, target string) (string, error) {
	if s.cfg.Loader == nil {
		return "", errorsx.New(errorsx.ReasonTranslateModelLoad, "model loader not configured")
	}
	pair := langtag.PairKey(source, target)
	if _, ok := s.cfg.Catalog[pair]; !ok {
		return "", errorsx.New(errorsx.ReasonTranslateStrategy, fmt.Sprintf("no model for pair %s", pair))
	}
	model, err := s.model(ctx, pair)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonTranslateModelLoad)
	}
	return model.Translate(ctx, text)
}

func (s *ModelStrategy) model(ctx context.Context, pair string) (Model, error) {
	s.mu.RLock()
	model, ok := s.loaded[pair]
	s.mu.RUnlock()
	if ok {
		return model, nil
	}

	v, err, _ := s.group.Do(pair, func() (any, error) {
		s.mu.RLock()
		cached, ok := s.loaded[pair]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		name := s.cfg.Catalog[pair]
		s.cfg.Logger.Info("model_load_started", "pair", pair, "model", name)
		loadedModel, err := s.cfg.Loader(ctx, pair, name)
		if err != nil {
			s.cfg.Logger.Error("model_load_failed", "pair", pair, "model", name, "error", err)
			return nil, err
		}

		s.mu.Lock()
		s.loaded[pair] = loadedModel
		s.mu.Unlock()
		return loadedModel, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Model), nil
}

var _ Strategy = (*ModelStrategy)(nil)
