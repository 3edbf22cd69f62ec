package deepgram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/segments"
)

// Config describes one live transcription connection.
type Config struct {
	APIKey         string
	Model          string
	Language       string
	SampleRate     int
	Encoding       string
	Interim        bool
	UtteranceEndMS int
	CallID         string
}

// Source adapts Deepgram live transcription into the segment source
// contract. Audio reaches the recognizer through WriteAudio; recognized
// utterances come back out of NextSegment once the assembler closes them.
type Source struct {
	cfg      Config
	dgClient *client.WSCallback
	asm      *segments.Assembler
	out      chan segments.Segment

	ctx        context.Context
	cancel     context.CancelFunc
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	closeOnce  sync.Once
	metaLogged bool
	logger     *slog.Logger
}

func New(cfg Config) *Source {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	return &Source{
		cfg:    cfg,
		asm:    segments.NewAssembler(segments.AssemblerConfig{}),
		out:    make(chan segments.Segment, 64),
		logger: logging.NewComponentLogger(nil, "deepgram_source"),
	}
}

func (s *Source) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.pipeReader, s.pipeWriter = io.Pipe()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          s.cfg.Model,
		Language:       s.cfg.Language,
		Encoding:       s.cfg.Encoding,
		SampleRate:     s.cfg.SampleRate,
		InterimResults: s.cfg.Interim,
		SmartFormat:    true,
	}
	if s.cfg.UtteranceEndMS > 0 {
		transcriptOptions.UtteranceEndMs = fmt.Sprintf("%d", s.cfg.UtteranceEndMS)
	}

	s.logger.Info("deepgram_connecting",
		slog.String("call_id", s.cfg.CallID),
		slog.String("model", s.cfg.Model),
		slog.String("language", s.cfg.Language),
		slog.Int("sample_rate", s.cfg.SampleRate))

	cb := &callback{parent: s}
	dgClient, err := client.NewWSUsingCallback(s.ctx, s.cfg.APIKey, clientOptions, transcriptOptions, cb)
	if err != nil {
		s.logger.Error("deepgram_client_create_error",
			slog.String("error", err.Error()),
			slog.String("call_id", s.cfg.CallID))
		return err
	}
	s.dgClient = dgClient

	if connected := s.dgClient.Connect(); !connected {
		s.logger.Error("deepgram_connect_failed", slog.String("call_id", s.cfg.CallID))
		return fmt.Errorf("deepgram connection failed")
	}

	go func() {
		if err := s.dgClient.Stream(s.pipeReader); err != nil && s.ctx.Err() == nil {
			s.logger.Error("deepgram_stream_error",
				slog.String("error", err.Error()),
				slog.String("call_id", s.cfg.CallID))
		}
	}()
	return nil
}

// WriteAudio forwards raw audio to the recognizer.
func (s *Source) WriteAudio(p []byte) error {
	if s.pipeWriter == nil {
		return fmt.Errorf("not started")
	}
	_, err := s.pipeWriter.Write(p)
	return err
}

func (s *Source) NextSegment(ctx context.Context) (segments.Segment, error) {
	select {
	case <-ctx.Done():
		return segments.Segment{}, ctx.Err()
	case seg, ok := <-s.out:
		if !ok {
			return segments.Segment{}, segments.ErrClosed
		}
		return seg, nil
	}
}

func (s *Source) Close() error {
	s.logger.Info("deepgram_closing", slog.String("call_id", s.cfg.CallID))
	if s.cancel != nil {
		s.cancel()
	}
	if s.pipeWriter != nil {
		_ = s.pipeWriter.Close()
	}
	if s.dgClient != nil {
		s.dgClient.Stop()
	}
	s.closeOnce.Do(func() { close(s.out) })
	return nil
}

func (s *Source) emit(seg segments.Segment) {
	select {
	case s.out <- seg:
	default:
		s.logger.Warn("deepgram_out_channel_full", slog.String("call_id", s.cfg.CallID))
	}
}

// --- Callback Implementation ---

type callback struct {
	parent *Source
}

func (c *callback) Open(or *msginterfaces.OpenResponse) error {
	c.parent.logger.Info("deepgram_connection_opened", slog.String("call_id", c.parent.cfg.CallID))
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := mr.Channel.Alternatives[0].Transcript
	if transcript == "" {
		return nil
	}
	isFinal := mr.IsFinal || mr.SpeechFinal

	c.parent.logger.Debug("transcript_piece",
		slog.String("call_id", c.parent.cfg.CallID),
		slog.Bool("is_final", isFinal))

	if seg, done := c.parent.asm.Add(transcript, c.parent.cfg.Language, isFinal); done {
		c.parent.emit(seg)
	}
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	if !c.parent.metaLogged {
		c.parent.metaLogged = true
		c.parent.logger.Info("deepgram_metadata_received",
			slog.String("call_id", c.parent.cfg.CallID),
			slog.String("request_id", md.RequestID))
	}
	return nil
}

func (c *callback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	c.parent.logger.Debug("speech_started", slog.String("call_id", c.parent.cfg.CallID))
	return nil
}

func (c *callback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	// Native end-of-utterance: release whatever the assembler holds.
	if seg, done := c.parent.asm.Flush(); done {
		c.parent.emit(seg)
	}
	return nil
}

func (c *callback) Close(cr *msginterfaces.CloseResponse) error {
	c.parent.logger.Info("deepgram_connection_closed", slog.String("call_id", c.parent.cfg.CallID))
	c.parent.closeOnce.Do(func() { close(c.parent.out) })
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.parent.logger.Error("deepgram_error",
		slog.String("call_id", c.parent.cfg.CallID),
		slog.String("error_code", er.ErrCode),
		slog.String("error_message", er.ErrMsg))
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.parent.logger.Debug("deepgram_unhandled_event",
		slog.String("call_id", c.parent.cfg.CallID),
		slog.String("data", string(byData)))
	return nil
}

var _ segments.Source = (*Source)(nil)
