// Package twiliodriver adapts call control onto Twilio's REST API. Live
// legs are steered with call updates: answer redirects the leg to the
// voice webhook, prompts inject TwiML, hangup completes the call.
// Twilio authenticates with account credentials, so the per-action token
// is not used here.
package twiliodriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/platform"
)

type callUpdater interface {
	UpdateCall(sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
}

type Config struct {
	AccountSID   string
	AuthToken    string
	VoiceURL     string
	MediaBaseURL string
	Logger       *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "twilio_driver")
	}
	return c
}

type Driver struct {
	cfg    Config
	client callUpdater
}

func New(cfg Config) *Driver {
	return &Driver{cfg: cfg.withDefaults()}
}

func (d *Driver) Answer(ctx context.Context, token, callID string) (int, error) {
	params := &api.UpdateCallParams{}
	params.SetUrl(d.cfg.VoiceURL)
	params.SetMethod(http.MethodPost)
	return d.update(callID, params, http.StatusOK)
}

func (d *Driver) PlayPrompt(ctx context.Context, token, callID, resourceID string) (int, error) {
	twiml := fmt.Sprintf(`<Response><Play>%s/%s.wav</Play><Pause length="3600"/></Response>`,
		d.cfg.MediaBaseURL, resourceID)
	params := &api.UpdateCallParams{}
	params.SetTwiml(twiml)
	return d.update(callID, params, http.StatusOK)
}

func (d *Driver) Hangup(ctx context.Context, token, callID string) (int, error) {
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")
	return d.update(callID, params, http.StatusNoContent)
}

// update runs one call update and maps the outcome to a platform status.
// Twilio REST errors carry their own HTTP status, which travels back as
// the advisory platform status rather than a hard failure.
func (d *Driver) update(callID string, params *api.UpdateCallParams, okStatus int) (int, error) {
	if callID == "" {
		return 0, errors.New("missing call sid")
	}
	client := d.client
	if client == nil {
		if d.cfg.AccountSID == "" || d.cfg.AuthToken == "" {
			return 0, errors.New("missing twilio credentials")
		}
		rest := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: d.cfg.AccountSID,
			Password: d.cfg.AuthToken,
		})
		client = rest.Api
	}

	_, err := client.UpdateCall(callID, params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			d.cfg.Logger.Warn("twilio rejected call update",
				slog.String("call_sid", callID),
				slog.Int("status", restErr.Status),
				slog.Int("code", restErr.Code),
				slog.String("message", restErr.Message))
			return restErr.Status, nil
		}
		return 0, err
	}
	return okStatus, nil
}

var _ platform.Driver = (*Driver)(nil)
