package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/logging"
)

// ExchangerConfig describes the identity provider endpoint.
type ExchangerConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
	Logger       *slog.Logger
}

func (c ExchangerConfig) withDefaults() ExchangerConfig {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "credential_exchanger")
	}
	return c
}

// HTTPExchanger posts a client_credentials grant to the token endpoint.
type HTTPExchanger struct {
	cfg ExchangerConfig
	hc  *http.Client
}

func NewHTTPExchanger(cfg ExchangerConfig) *HTTPExchanger {
	cfg = cfg.withDefaults()
	return &HTTPExchanger{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (e *HTTPExchanger) Exchange(ctx context.Context) (Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", e.cfg.ClientID)
	form.Set("client_secret", e.cfg.ClientSecret)
	if e.cfg.Scope != "" {
		form.Set("scope", e.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, errorsx.Wrap(err, errorsx.ReasonAuthExchange)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.hc.Do(req)
	if err != nil {
		return Credential{}, errorsx.Wrap(err, errorsx.ReasonAuthExchange)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.cfg.Logger.Warn("token_endpoint_rejected", "status", resp.StatusCode)
		return Credential{}, errorsx.New(errorsx.ReasonAuthRejected,
			fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Credential{}, errorsx.Wrap(err, errorsx.ReasonAuthExchange)
	}
	if tr.AccessToken == "" {
		return Credential{}, errorsx.New(errorsx.ReasonAuthRejected, "token endpoint returned no access_token")
	}
	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return Credential{
		Token:     tr.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
