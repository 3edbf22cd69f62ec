package wsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/resilience"
	"github.com/dragomanhq/dragoman/pkg/segments"
)

// Config describes a websocket caption feed subscription.
type Config struct {
	URL       string
	AuthToken string
	Language  string
	CallID    string
	PingEvery time.Duration
}

// captionEvent is the wire shape pushed by the feed. Partial captions
// arrive with final=false and fold into the assembler until a final
// event or native end-of-sentence closes the utterance.
type captionEvent struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Final    bool   `json:"final"`
}

// Source consumes caption events from a remote websocket feed and
// exposes them as assembled segments.
type Source struct {
	cfg    Config
	conn   *websocket.Conn
	asm    *segments.Assembler
	out    chan segments.Segment
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closeOnce sync.Once
	logger    *slog.Logger
}

func New(cfg Config) *Source {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.PingEvery == 0 {
		cfg.PingEvery = 15 * time.Second
	}
	return &Source{
		cfg:    cfg,
		asm:    segments.NewAssembler(segments.AssemblerConfig{}),
		out:    make(chan segments.Segment, 64),
		logger: logging.NewComponentLogger(nil, "wsfeed_source"),
	}
}

func (s *Source) Start(ctx context.Context) error {
	if s.cfg.URL == "" {
		return errors.New("missing feed url")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Debug("connecting to caption feed",
		slog.String("call_id", s.cfg.CallID),
		slog.String("url", s.cfg.URL))

	header := http.Header{}
	if s.cfg.AuthToken != "" {
		header.Set("Authorization", "Bearer "+s.cfg.AuthToken)
	}
	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.Dial(s.cfg.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			s.logger.Error("caption feed rate limit exceeded",
				slog.String("call_id", s.cfg.CallID),
				slog.String("status", resp.Status))
			return resilience.RateLimitError{Provider: "wsfeed", Message: resp.Status}
		}
		s.logger.Error("failed to connect to caption feed",
			slog.String("call_id", s.cfg.CallID),
			slog.String("error", err.Error()))
		return err
	}
	s.conn = conn

	s.logger.Info("connected to caption feed",
		slog.String("call_id", s.cfg.CallID))

	go s.readLoop()
	go s.pingLoop()
	return nil
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
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("caption feed close called",
		slog.String("call_id", s.cfg.CallID))
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = s.conn.Close()
	}
	s.closeOnce.Do(func() { close(s.out) })
	return nil
}

func (s *Source) readLoop() {
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("caption feed read loop exit",
				slog.String("call_id", s.cfg.CallID),
				slog.String("reason", "context_cancelled"))
			return
		default:
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				if s.ctx.Err() == nil {
					s.logger.Error("caption feed read error",
						slog.String("call_id", s.cfg.CallID),
						slog.String("error", err.Error()))
				}
				s.closeOnce.Do(func() { close(s.out) })
				return
			}
			s.handleMessage(data)
		}
	}
}

func (s *Source) handleMessage(data []byte) {
	var ev captionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("caption feed raw data", "data", string(data))
		return
	}
	if ev.Text == "" {
		return
	}
	lang := ev.Language
	if lang == "" {
		lang = s.cfg.Language
	}
	if seg, done := s.asm.Add(ev.Text, lang, ev.Final); done {
		select {
		case s.out <- seg:
		default:
			s.logger.Warn("caption feed output buffer full",
				slog.String("call_id", s.cfg.CallID))
		}
	}
}

func (s *Source) pingLoop() {
	ticker := time.NewTicker(s.cfg.PingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			// Keep-alive so idle call legs survive proxy timeouts.
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

var _ segments.Source = (*Source)(nil)
