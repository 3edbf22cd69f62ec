// Package translate turns recognized speech segments into target-language
// text. A pipeline tries an ordered chain of strategies under one
// whole-call deadline; a deterministic tag fallback guarantees the caller
// always receives usable text.
package translate

import (
	"context"
	"strings"
	"time"
)

// StrategyKind identifies which chain member produced a result.
type StrategyKind int

const (
	StrategyPrimary StrategyKind = iota
	StrategySecondaryAPI
	StrategyDeterministic
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyPrimary:
		return "primary"
	case StrategySecondaryAPI:
		return "secondary_api"
	case StrategyDeterministic:
		return "deterministic"
	default:
		return "unknown"
	}
}

// Strategy is one concrete translator in the fallback chain.
type Strategy interface {
	Kind() StrategyKind
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Request is one segment to translate. Deadline bounds the entire
// pipeline call; zero means the pipeline applies its default budget.
type Request struct {
	Text     string
	Source   string
	Target   string
	CallID   string
	CycleID  string
	Deadline time.Time
}

// Result describes the translation outcome. TranslatedText is never
// empty for non-empty input, whichever way the chain degraded.
type Result struct {
	TranslatedText string
	Strategy       StrategyKind
	TimedOut       bool
	Err            error
}

// acceptable rejects output that cannot be spoken: empty strings and
// bare punctuation, which the model backends produce for degenerate
// input and which must be treated as strategy failure.
func acceptable(out string) bool {
	trimmed := strings.TrimSpace(out)
	switch trimmed {
	case "", ".", ",", "!", "?":
		return false
	}
	return true
}
