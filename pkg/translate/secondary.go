package translate

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
	"github.com/dragomanhq/dragoman/pkg/langtag"
	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/resilience"
)

type APIConfig struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Retry   resilience.RetryPolicy
	Breaker *resilience.CircuitBreaker
	Logger  *slog.Logger
}

func (c APIConfig) withDefaults() APIConfig {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.Retry.MaxRetries == 0 && c.Retry.Backoff == 0 {
		c.Retry = resilience.NewRetryPolicy(2, 200*time.Millisecond)
	}
	if c.Breaker == nil {
		c.Breaker = resilience.NewCircuitBreaker(3, 30*time.Second)
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "translate_api")
	}
	return c
}

// APIStrategy delegates to a remote translation service. Repeated rate
// limit responses open the breaker so an overloaded backend is skipped
// instead of hammered, letting the chain degrade immediately.
type APIStrategy struct {
	cfg APIConfig
}

func NewAPIStrategy(cfg APIConfig) *APIStrategy {
	return &APIStrategy{cfg: cfg.withDefaults()}
}

func (s *APIStrategy) Kind() StrategyKind { return StrategySecondaryAPI }

type apiRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

type apiResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (s *APIStrategy) Translate(ctx context.Context, text, source, target string) (string, error) {
	if s.cfg.BaseURL == "" {
		return "", errorsx.New(errorsx.ReasonTranslateStrategy, "translation api not configured")
	}
	if !s.cfg.Breaker.Allow() {
		return "", errorsx.New(errorsx.ReasonTranslateRateLimit, "translation api circuit open")
	}

	var out string
	err := s.cfg.Retry.DoCtx(ctx, func() error {
		translated, err := s.post(ctx, text, source, target)
		if err != nil {
			s.cfg.Breaker.OnError(err)
			return err
		}
		s.cfg.Breaker.OnSuccess()
		out = translated
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (s *APIStrategy) post(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(apiRequest{
		Text:           text,
		SourceLanguage: langtag.Normalize(source),
		TargetLanguage: langtag.Normalize(target),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		s.cfg.Logger.Warn("translation api rate limited",
			slog.String("pair", langtag.PairKey(source, target)))
		return "", resilience.RateLimitError{Provider: "translate_api", Message: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", errorsx.New(errorsx.ReasonTranslateStrategy,
			fmt.Sprintf("translation api returned %d: %s", resp.StatusCode, string(raw)))
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.TranslatedText, nil
}

var _ Strategy = (*APIStrategy)(nil)
