// Package commsapi drives call control over a Graph-style communications
// REST API: answer and playPrompt are POSTs under the call resource,
// hangup is a DELETE of the call itself.
package commsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/platform"
)

type Config struct {
	BaseURL     string
	CallbackURI string
	WelcomeURI  string
	Client      *http.Client
	Logger      *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://graph.microsoft.com/v1.0"
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "commsapi")
	}
	return c
}

type Driver struct {
	cfg Config
}

func New(cfg Config) *Driver {
	return &Driver{cfg: cfg.withDefaults()}
}

func (d *Driver) Answer(ctx context.Context, token, callID string) (int, error) {
	body := map[string]any{
		"acceptedModalities": []string{"audio"},
		"mediaConfig": map[string]any{
			"@odata.type": "#microsoft.graph.serviceHostedMediaConfig",
			"preFetchMedia": []map[string]any{
				{"uri": d.cfg.WelcomeURI, "resourceId": platform.WelcomeResourceID},
			},
		},
	}
	if d.cfg.CallbackURI != "" {
		body["callbackUri"] = d.cfg.CallbackURI
	}
	url := fmt.Sprintf("%s/communications/calls/%s/answer", d.cfg.BaseURL, callID)
	return d.do(ctx, http.MethodPost, url, token, body)
}

func (d *Driver) PlayPrompt(ctx context.Context, token, callID, resourceID string) (int, error) {
	body := map[string]any{
		"prompts": []map[string]any{
			{
				"@odata.type": "#microsoft.graph.mediaPrompt",
				"mediaInfo": map[string]any{
					"@odata.type": "#microsoft.graph.mediaInfo",
					"resourceId":  resourceID,
					"uri":         nil,
				},
			},
		},
	}
	url := fmt.Sprintf("%s/communications/calls/%s/playPrompt", d.cfg.BaseURL, callID)
	return d.do(ctx, http.MethodPost, url, token, body)
}

func (d *Driver) Hangup(ctx context.Context, token, callID string) (int, error) {
	url := fmt.Sprintf("%s/communications/calls/%s", d.cfg.BaseURL, callID)
	return d.do(ctx, http.MethodDelete, url, token, nil)
}

// do performs one authorized call and returns the platform status. A
// transport failure is the only error; rejected statuses travel back as
// values for the controller to judge.
func (d *Driver) do(ctx context.Context, method, url, token string, body map[string]any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.cfg.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		d.cfg.Logger.Warn("call-control action rejected",
			slog.String("method", method),
			slog.String("url", url),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(raw)))
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

var _ platform.Driver = (*Driver)(nil)
