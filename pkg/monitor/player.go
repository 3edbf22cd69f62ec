package monitor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/synthesis"
)

// LogPlayer stands in for the playback leg of the call platform: it logs
// each delivery instead of pushing audio anywhere.
type LogPlayer struct {
	log *slog.Logger
}

func NewLogPlayer(log *slog.Logger) *LogPlayer {
	if log == nil {
		log = logging.NewComponentLogger(nil, "player")
	}
	return &LogPlayer{log: log}
}

func (p *LogPlayer) Play(_ context.Context, callID string, audio synthesis.AudioRef) error {
	p.log.Info("audio_delivered",
		"call_id", callID,
		"audio_id", audio.ID,
		"voice", audio.Voice,
		"bytes", len(audio.Data),
		"duration_ms", audio.Duration.Milliseconds(),
		"silence", audio.Silence,
	)
	return nil
}

// FilePlayer drops each synthesized clip into a per-call directory so an
// operator can audit what the call heard. The retention sweeper prunes the
// directory on the usual schedule.
type FilePlayer struct {
	dir string
	log *slog.Logger
}

func NewFilePlayer(dir string, log *slog.Logger) *FilePlayer {
	if log == nil {
		log = logging.NewComponentLogger(nil, "player")
	}
	return &FilePlayer{dir: dir, log: log}
}

func (p *FilePlayer) Play(_ context.Context, callID string, audio synthesis.AudioRef) error {
	if strings.TrimSpace(p.dir) == "" {
		return nil
	}
	dir := filepath.Join(p.dir, safePathPart(callID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, audio.ID+".wav")
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		return err
	}
	p.log.Debug("audio_written", "call_id", callID, "path", path)
	return nil
}

func safePathPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
