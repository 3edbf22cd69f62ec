package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/redact"
	"github.com/dragomanhq/dragoman/pkg/resilience"
)

type Config struct {
	Engine          Engine
	Catalog         *VoiceCatalog
	MinAudioBytes   int
	SilenceDuration time.Duration
	SampleRate      int
	Retry           resilience.RetryPolicy
	Logger          *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Catalog == nil {
		c.Catalog = NewVoiceCatalog(nil, "")
	}
	if c.MinAudioBytes <= 0 {
		c.MinAudioBytes = 100
	}
	if c.SilenceDuration <= 0 {
		c.SilenceDuration = time.Second
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Retry.MaxRetries == 0 && c.Retry.Backoff == 0 {
		c.Retry = resilience.NewRetryPolicy(2, 200*time.Millisecond)
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "synthesis")
	}
	return c
}

// Handoff turns text into audio references. Missing voice mappings
// degrade with a log line; only engine failure or an invalid render is
// an error, and callers are expected to play Silence() in its place.
type Handoff struct {
	cfg Config
}

func NewHandoff(cfg Config) *Handoff {
	return &Handoff{cfg: cfg.withDefaults()}
}

func (h *Handoff) Synthesize(ctx context.Context, text, language string) (AudioRef, error) {
	if h.cfg.Engine == nil {
		return AudioRef{}, errorsx.New(errorsx.ReasonSynthesisRender, "synthesis engine not configured")
	}

	voice, match := h.cfg.Catalog.Resolve(language)
	switch match {
	case MatchPrimary:
		h.cfg.Logger.Info("voice fallback to primary subtag",
			slog.String("language", language),
			slog.String("voice", voice.ID),
			slog.String("voice_language", voice.Language))
	case MatchDefault:
		h.cfg.Logger.Warn("no voice for language, using default",
			slog.String("language", language),
			slog.String("voice", voice.ID))
	case MatchNone:
		h.cfg.Logger.Warn("empty voice catalog, relying on engine default",
			slog.String("language", language))
	}

	h.cfg.Logger.Debug("synthesis request",
		slog.String("language", language),
		slog.String("voice", voice.ID),
		slog.String("text", redact.Transcript(text, 48)),
		slog.Int("text_length", len(text)))

	var data []byte
	err := h.cfg.Retry.DoCtx(ctx, func() error {
		rendered, err := h.cfg.Engine.Render(ctx, text, voice.ID)
		if err != nil {
			return err
		}
		data = rendered
		return nil
	})
	if err != nil {
		h.cfg.Logger.Error("synthesis failed",
			slog.String("language", language),
			slog.String("voice", voice.ID),
			slog.String("error", err.Error()))
		return AudioRef{}, errorsx.Wrap(err, errorsx.ReasonSynthesisRender)
	}
	if len(data) < h.cfg.MinAudioBytes {
		h.cfg.Logger.Warn("synthesis output too small",
			slog.String("language", language),
			slog.String("voice", voice.ID),
			slog.Int("bytes", len(data)))
		return AudioRef{}, errorsx.New(errorsx.ReasonSynthesisEmpty,
			fmt.Sprintf("engine produced %d bytes", len(data)))
	}

	return AudioRef{
		ID:          uuid.NewString(),
		Data:        data,
		ContentType: "audio/wav",
		SampleRate:  h.cfg.SampleRate,
		Channels:    1,
		Duration:    pcmDuration(len(data), h.cfg.SampleRate),
		Voice:       voice.ID,
	}, nil
}

// Silence builds the fixed-duration placeholder played when synthesis
// fails, so a bad segment degrades to a pause instead of ending a call.
func (h *Handoff) Silence() AudioRef {
	samples := int(float64(h.cfg.SampleRate) * h.cfg.SilenceDuration.Seconds())
	return AudioRef{
		ID:          uuid.NewString(),
		Data:        make([]byte, samples*2),
		ContentType: "audio/wav",
		SampleRate:  h.cfg.SampleRate,
		Channels:    1,
		Duration:    h.cfg.SilenceDuration,
		Silence:     true,
	}
}

// pcmDuration estimates playback time assuming 16-bit mono PCM.
func pcmDuration(bytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	seconds := float64(bytes) / float64(2*sampleRate)
	return time.Duration(seconds * float64(time.Second))
}
