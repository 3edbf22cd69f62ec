// Package callctl orchestrates call control: answering inbound calls,
// prompting, and ending calls, tying the platform driver to the session
// registry and the per-call monitor tasks.
package callctl

import (
	"context"
	"log/slog"

	"github.com/dragomanhq/dragoman/pkg/credential"
	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/monitor"
	"github.com/dragomanhq/dragoman/pkg/platform"
	"github.com/dragomanhq/dragoman/pkg/segments"
	"github.com/dragomanhq/dragoman/pkg/session"
)

// TokenSource is the slice of the credential manager the controller needs.
type TokenSource interface {
	Token(ctx context.Context) (credential.Credential, error)
}

type Config struct {
	Credentials TokenSource
	Driver      platform.Driver
	Registry    *session.Registry
	Monitors    *monitor.Manager
	Sources     segments.Factory

	// DefaultSource and DefaultTarget seed a new session's language pair
	// until a mid-call change arrives.
	DefaultSource string
	DefaultTarget string

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.DefaultSource == "" {
		c.DefaultSource = "en-US"
	}
	if c.DefaultTarget == "" {
		c.DefaultTarget = "es-CO"
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "call_controller")
	}
	return c
}

// Controller owns the call actions. Every action reports success to its
// caller as a boolean and logs its failure; no action panics the process
// or corrupts registry state for other calls.
type Controller struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{cfg: cfg, log: cfg.Logger}
}

// AnswerCall accepts an inbound call. Duplicate sessions are refused before
// any platform traffic; after the platform accepts, the session is created
// and activated, its monitor task started, and the welcome prompt issued.
func (c *Controller) AnswerCall(ctx context.Context, callID string) bool {
	log := logging.NewCallLogger(c.log, callID)
	if callID == "" {
		log.Warn("answer_rejected", "error", "empty call id")
		return false
	}
	if c.cfg.Registry.Draining() {
		log.Warn("answer_rejected_draining")
		return false
	}
	if _, ok := c.cfg.Registry.Get(callID); ok {
		log.Warn("answer_rejected_duplicate_session")
		return false
	}

	cred, err := c.cfg.Credentials.Token(ctx)
	if err != nil {
		log.Error("credential_exchange_failed", "error", err)
		return false
	}

	status, err := c.cfg.Driver.Answer(ctx, cred.Token, callID)
	if err != nil {
		log.Error("platform_answer_failed", "error", err)
		return false
	}
	if !platform.AnswerAccepted(status) {
		log.Warn("platform_answer_rejected", "status", status)
		return false
	}

	sess, err := c.cfg.Registry.Create(callID, c.cfg.DefaultSource, c.cfg.DefaultTarget)
	if err != nil {
		log.Error("session_create_failed", "error", err)
		return false
	}
	if err := sess.Transition(session.StatusActive); err != nil {
		log.Error("session_activate_failed", "error", err)
		_ = c.cfg.Registry.Retire(callID)
		return false
	}

	if err := c.startMonitor(ctx, sess); err != nil {
		log.Error("monitor_start_failed", "error", err)
		_ = c.cfg.Registry.Retire(callID)
		return false
	}

	if promptStatus, err := c.cfg.Driver.PlayPrompt(ctx, cred.Token, callID, platform.WelcomeResourceID); err != nil {
		log.Warn("welcome_prompt_failed", "error", err)
	} else if !platform.PromptAccepted(promptStatus) {
		log.Warn("welcome_prompt_rejected", "status", promptStatus)
	}

	log.Info("call_answered",
		"status", status,
		"source", c.cfg.DefaultSource,
		"target", c.cfg.DefaultTarget,
	)
	return true
}

func (c *Controller) startMonitor(ctx context.Context, sess *session.CallSession) error {
	if c.cfg.Sources == nil {
		return errorsx.New(errorsx.ReasonSourceConnect, "segment source factory not configured")
	}
	src, err := c.cfg.Sources(sess.CallID)
	if err != nil {
		return err
	}
	if err := src.Start(ctx); err != nil {
		return err
	}
	if _, err := c.cfg.Monitors.Start(sess, src); err != nil {
		_ = src.Close()
		return err
	}
	return nil
}

// PlayPrompt plays a prefetched media resource into the call.
func (c *Controller) PlayPrompt(ctx context.Context, callID, resourceID string) bool {
	log := logging.NewCallLogger(c.log, callID)
	if resourceID == "" {
		resourceID = platform.WelcomeResourceID
	}
	cred, err := c.cfg.Credentials.Token(ctx)
	if err != nil {
		log.Error("credential_exchange_failed", "error", err)
		return false
	}
	status, err := c.cfg.Driver.PlayPrompt(ctx, cred.Token, callID, resourceID)
	if err != nil {
		log.Error("platform_prompt_failed", "error", err)
		return false
	}
	if !platform.PromptAccepted(status) {
		log.Warn("platform_prompt_rejected", "status", status)
		return false
	}
	log.Info("prompt_played", "resource_id", resourceID)
	return true
}

// EndCall hangs up and retires the session. Unknown calls fail without any
// platform traffic; a rejected hangup leaves the session in place so the
// caller can retry.
func (c *Controller) EndCall(ctx context.Context, callID string) bool {
	log := logging.NewCallLogger(c.log, callID)
	if _, ok := c.cfg.Registry.Get(callID); !ok {
		log.Warn("end_rejected_unknown_session")
		return false
	}
	cred, err := c.cfg.Credentials.Token(ctx)
	if err != nil {
		log.Error("credential_exchange_failed", "error", err)
		return false
	}
	status, err := c.cfg.Driver.Hangup(ctx, cred.Token, callID)
	if err != nil {
		log.Error("platform_hangup_failed", "error", err)
		return false
	}
	if !platform.HangupAccepted(status) {
		log.Warn("platform_hangup_rejected", "status", status)
		return false
	}
	c.cfg.Monitors.Stop(callID)
	if err := c.cfg.Registry.Retire(callID); err != nil {
		log.Warn("session_retire_failed", "error", err)
	}
	log.Info("call_ended", "status", status)
	return true
}

// HandleCallNotification reacts to a platform change notification,
// answering each newly created call it names. Per-call answer failures are
// logged; only a malformed payload is an error.
func (c *Controller) HandleCallNotification(ctx context.Context, raw []byte) error {
	note, err := platform.ParseNotification(raw)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonGatewayPayload)
	}
	ids := note.CreatedCallIDs()
	if len(ids) == 0 {
		c.log.Debug("notification_without_created_calls", "items", len(note.Value))
		return nil
	}
	for _, id := range ids {
		if !c.AnswerCall(ctx, id) {
			c.log.Warn("notification_answer_failed", "call_id", id)
		}
	}
	return nil
}

// Session exposes the registry lookup for external surfaces.
func (c *Controller) Session(callID string) (*session.CallSession, bool) {
	return c.cfg.Registry.Get(callID)
}

// SetSessionLanguages changes a call's language pair; the monitor task
// picks the change up on its next cycle.
func (c *Controller) SetSessionLanguages(callID, source, target string) error {
	return c.cfg.Registry.SetLanguages(callID, source, target)
}

// ActiveCalls reports how many sessions are live.
func (c *Controller) ActiveCalls() int64 {
	return c.cfg.Registry.Count()
}
