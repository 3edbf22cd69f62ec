package credential

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/logging"
)

// Credential is the cached authorization artifact for the call-control
// platform. It is replaced wholesale on refresh, never mutated.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Exchanger performs one credential exchange with the identity provider.
type Exchanger interface {
	Exchange(ctx context.Context) (Credential, error)
}

// Config tunes the manager.
type Config struct {
	// Margin is the safety buffer before expiry: a cached credential is
	// served only while now < ExpiresAt - Margin.
	Margin time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Margin <= 0 {
		c.Margin = 5 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = logging.NewComponentLogger(nil, "credential")
	}
	return c
}

// Manager caches a credential and refreshes it proactively. Reads of a
// still-valid credential never block; concurrent callers during a refresh
// collapse into one exchange.
type Manager struct {
	cfg       Config
	exchanger Exchanger

	mu     sync.RWMutex
	cached Credential

	group singleflight.Group
}

func NewManager(exchanger Exchanger, cfg Config) *Manager {
	return &Manager{cfg: cfg.withDefaults(), exchanger: exchanger}
}

// Token returns the cached credential while it is inside the refresh
// margin, otherwise performs a single-flight refresh. Exchange failures
// come back reasoned as auth errors; the caller escalates instead of
// retrying within the same action.
func (m *Manager) Token(ctx context.Context) (Credential, error) {
	if cred, ok := m.valid(); ok {
		return cred, nil
	}
	v, err, _ := m.group.Do("token", func() (any, error) {
		if cred, ok := m.valid(); ok {
			return cred, nil
		}
		cred, err := m.exchanger.Exchange(ctx)
		if err != nil {
			m.cfg.Logger.Error("credential_exchange_failed", "error", err)
			return Credential{}, errorsx.Wrap(err, errorsx.ReasonAuthExchange)
		}
		m.mu.Lock()
		m.cached = cred
		m.mu.Unlock()
		m.cfg.Logger.Info("credential_refreshed", "expires_at", cred.ExpiresAt)
		return cred, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// Invalidate drops the cached credential so the next Token call refreshes,
// used after the platform rejects a token early.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = Credential{}
	m.mu.Unlock()
}

func (m *Manager) valid() (Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cached.Token == "" {
		return Credential{}, false
	}
	if !m.cfg.Now().Before(m.cached.ExpiresAt.Add(-m.cfg.Margin)) {
		return Credential{}, false
	}
	return m.cached, true
}
