package translate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/langtag"
	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/redact"
)

// timedOutSuffix annotates text returned after the deadline elapsed.
const timedOutSuffix = " [Translation timed out]"

var errAttemptTimeout = errors.New("strategy attempt timed out")

type Config struct {
	Strategies []Strategy
	Budget     time.Duration
	Logger     *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Budget <= 0 {
		c.Budget = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "translate")
	}
	return c
}

// Pipeline tries strategies in configured order. The tag fallback is
// always appended last so a well-formed request cannot fail outright.
type Pipeline struct {
	cfg      Config
	fallback TagStrategy
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults()}
}

// Translate runs the fallback chain for one request. The whole call is
// bounded by the request deadline: strategies still running when it
// elapses are abandoned and their eventual output discarded.
func (p *Pipeline) Translate(ctx context.Context, req Request) Result {
	if langtag.Normalize(req.Target) == "" {
		return Result{
			TranslatedText: req.Text,
			Strategy:       StrategyDeterministic,
			Err:            errorsx.New(errorsx.ReasonTranslateStrategy, "missing target language"),
		}
	}
	if strings.TrimSpace(req.Text) == "" || langtag.Same(req.Source, req.Target) {
		return Result{TranslatedText: req.Text, Strategy: StrategyPrimary}
	}

	deadline := req.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(p.cfg.Budget)
	}

	chain := make([]Strategy, 0, len(p.cfg.Strategies)+1)
	chain = append(chain, p.cfg.Strategies...)
	chain = append(chain, p.fallback)

	for _, strategy := range chain {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return p.timedOut(req)
		}

		out, err := attempt(ctx, strategy, req, remaining)
		if errors.Is(err, errAttemptTimeout) {
			p.cfg.Logger.Warn("translation deadline elapsed",
				slog.String("call_id", req.CallID),
				slog.String("strategy", strategy.Kind().String()),
				slog.String("pair", langtag.PairKey(req.Source, req.Target)))
			return p.timedOut(req)
		}
		if err != nil {
			p.cfg.Logger.Debug("strategy failed, falling through",
				slog.String("call_id", req.CallID),
				slog.String("strategy", strategy.Kind().String()),
				slog.String("pair", langtag.PairKey(req.Source, req.Target)),
				slog.String("error", err.Error()))
			continue
		}
		if !acceptable(out) {
			p.cfg.Logger.Debug("strategy produced unusable output",
				slog.String("call_id", req.CallID),
				slog.String("strategy", strategy.Kind().String()),
				slog.String("output", redact.Transcript(out, 16)))
			continue
		}

		p.cfg.Logger.Debug("translated",
			slog.String("call_id", req.CallID),
			slog.String("strategy", strategy.Kind().String()),
			slog.String("pair", langtag.PairKey(req.Source, req.Target)),
			slog.String("text", redact.Transcript(out, 48)))
		return Result{TranslatedText: out, Strategy: strategy.Kind()}
	}

	// Unreachable while the tag fallback terminates the chain.
	return Result{TranslatedText: renderTagged(req.Text, req.Target), Strategy: StrategyDeterministic}
}

func (p *Pipeline) timedOut(req Request) Result {
	return Result{
		TranslatedText: req.Text + timedOutSuffix,
		Strategy:       StrategyDeterministic,
		TimedOut:       true,
	}
}

// attempt runs one strategy bounded by the remaining budget. On timeout
// the in-flight goroutine is left to finish on its own; the buffered
// channel lets it complete its send with nobody listening.
func attempt(ctx context.Context, strategy Strategy, req Request, remaining time.Duration) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		text, err := strategy.Translate(ctx, req.Text, req.Source, req.Target)
		ch <- outcome{text: text, err: err}
	}()
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case out := <-ch:
		return out.text, out.err
	case <-timer.C:
		return "", errAttemptTimeout
	}
}
