package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/resilience"
)

type EngineConfig struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Logger  *slog.Logger
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "synthesis_engine")
	}
	return c
}

// HTTPEngine renders speech through a remote synthesis service. The
// service takes text plus a voice id and answers with raw audio bytes.
type HTTPEngine struct {
	cfg EngineConfig
}

func NewHTTPEngine(cfg EngineConfig) *HTTPEngine {
	return &HTTPEngine{cfg: cfg.withDefaults()}
}

type renderRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
}

func (e *HTTPEngine) Render(ctx context.Context, text, voiceID string) ([]byte, error) {
	if e.cfg.BaseURL == "" {
		return nil, errorsx.New(errorsx.ReasonSynthesisRender, "synthesis engine not configured")
	}
	body, err := json.Marshal(renderRequest{Text: text, VoiceID: voiceID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		e.cfg.Logger.Warn("synthesis engine rate limited", slog.String("voice", voiceID))
		return nil, resilience.RateLimitError{Provider: "synthesis_engine", Message: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, errorsx.New(errorsx.ReasonSynthesisRender,
			fmt.Sprintf("synthesis engine returned %d: %s", resp.StatusCode, string(raw)))
	}
	return io.ReadAll(resp.Body)
}

var _ Engine = (*HTTPEngine)(nil)
