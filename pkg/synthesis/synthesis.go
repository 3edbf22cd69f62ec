// Package synthesis converts translated text into playable audio. Voice
// selection degrades from an exact language match down to a default voice
// rather than failing; engine trouble is the only hard error, and callers
// substitute silence for it.
package synthesis

import (
	"context"
	"strings"
	"time"

	"github.com/dragomanhq/dragoman/pkg/langtag"
)

// Engine renders text with one synthesis voice.
type Engine interface {
	Render(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Voice is one entry in the synthesis voice catalog.
type Voice struct {
	ID       string
	Language string
	Name     string
}

// AudioRef points at one playable synthesis result. Duration is a PCM
// estimate used by usage accounting, not an authoritative decode.
type AudioRef struct {
	ID          string
	Data        []byte
	ContentType string
	SampleRate  int
	Channels    int
	Duration    time.Duration
	Voice       string
	Silence     bool
}

// VoiceMatch describes how far voice selection had to degrade.
type VoiceMatch int

const (
	MatchExact VoiceMatch = iota
	MatchPrimary
	MatchDefault
	MatchNone
)

func (m VoiceMatch) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPrimary:
		return "primary_subtag"
	case MatchDefault:
		return "default"
	default:
		return "none"
	}
}

// VoiceCatalog maps languages to voices with tiered fallback.
type VoiceCatalog struct {
	voices    []Voice
	defaultID string
}

func NewVoiceCatalog(voices []Voice, defaultID string) *VoiceCatalog {
	return &VoiceCatalog{voices: voices, defaultID: defaultID}
}

// Resolve picks a voice for the language: exact tag match first, then a
// voice sharing the primary subtag, then the catalog default. MatchNone
// means the catalog is empty and the engine default must serve.
func (c *VoiceCatalog) Resolve(language string) (Voice, VoiceMatch) {
	for _, v := range c.voices {
		if strings.EqualFold(v.Language, language) {
			return v, MatchExact
		}
	}
	if primary := langtag.Primary(language); primary != "" {
		for _, v := range c.voices {
			if langtag.Primary(v.Language) == primary {
				return v, MatchPrimary
			}
		}
	}
	if c.defaultID != "" {
		for _, v := range c.voices {
			if v.ID == c.defaultID {
				return v, MatchDefault
			}
		}
	}
	if len(c.voices) > 0 {
		return c.voices[0], MatchDefault
	}
	return Voice{}, MatchNone
}

// Voices exposes the catalog entries for status reporting.
func (c *VoiceCatalog) Voices() []Voice {
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}
