// Package gateway is the HTTP surface of the interpreter: the call
// notification webhook, the bot message endpoint, health and status, and
// the manifest documents the platform fetches during app validation.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/session"
	"github.com/dragomanhq/dragoman/pkg/translate"
)

const maxBodyBytes = 1 << 20

// CallActions is the slice of the call controller the gateway needs.
type CallActions interface {
	HandleCallNotification(ctx context.Context, raw []byte) error
	Session(callID string) (*session.CallSession, bool)
	SetSessionLanguages(callID, source, target string) error
	ActiveCalls() int64
}

// Translator answers text-mode translation requests from the message
// endpoint.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) translate.Result
}

type Config struct {
	Addr               string        `mapstructure:"addr"`
	SharedSecret       string        `mapstructure:"shared_secret"`
	AppID              string        `mapstructure:"app_id"`
	BotName            string        `mapstructure:"bot_name"`
	StaticDir          string        `mapstructure:"static_dir"`
	SupportedLanguages []string      `mapstructure:"supported_languages"`
	MessageLanguage    string        `mapstructure:"message_language"`
	MessageBudget      time.Duration `mapstructure:"message_budget"`
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":3978"
	}
	if c.BotName == "" {
		c.BotName = "Dragoman Interpreter Bot"
	}
	if len(c.SupportedLanguages) == 0 {
		c.SupportedLanguages = []string{"en-US", "ru-RU", "es-CO"}
	}
	if c.MessageLanguage == "" {
		c.MessageLanguage = "en-US"
	}
	if c.MessageBudget <= 0 {
		c.MessageBudget = 10 * time.Second
	}
	return c
}

type Gateway struct {
	cfg        Config
	ctl        CallActions
	translator Translator
	server     *http.Server
	log        *slog.Logger

	draining atomic.Bool
}

func New(cfg Config, ctl CallActions, translator Translator) *Gateway {
	return &Gateway{
		cfg:        cfg.withDefaults(),
		ctl:        ctl,
		translator: translator,
		log:        logging.NewComponentLogger(nil, "gateway"),
	}
}

// Config returns the resolved configuration, defaults applied.
func (g *Gateway) Config() Config {
	return g.cfg
}

// Handler builds the route table. Exposed so tests can serve it without a
// listener.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleRoot)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/api/status", g.handleStatus)
	mux.HandleFunc("/api/calls", g.handleCalls)
	mux.HandleFunc("/api/messages", g.handleMessages)
	mux.HandleFunc("/manifest.json", g.handleManifest)
	mux.HandleFunc("/.well-known/microsoft-bot-framework.json", g.handleWellKnown)
	if g.cfg.StaticDir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/",
			http.FileServer(http.Dir(g.cfg.StaticDir))))
	}
	return mux
}

func (g *Gateway) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g.server = &http.Server{
		Addr:              g.cfg.Addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           g.Handler(),
	}
	go func() {
		<-ctx.Done()
		_ = g.server.Close()
	}()
	go func() {
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("gateway_server_error", "error", err)
		}
	}()
	g.log.Info("gateway_listening", "addr", g.cfg.Addr)
	return nil
}

func (g *Gateway) Stop() error {
	g.draining.Store(true)
	if g.server != nil {
		_ = g.server.Close()
	}
	return nil
}

func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "%s is up and running!", g.cfg.BotName)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

func (g *Gateway) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"activeCalls":        g.ctl.ActiveCalls(),
		"supportedLanguages": g.cfg.SupportedLanguages,
		"draining":           g.draining.Load(),
	})
}

func (g *Gateway) handleCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !g.authorized(r) {
		g.log.Warn("gateway_secret_rejected",
			"reason_code", string(errorsx.ReasonGatewaySecret),
			"path", r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if g.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := g.ctl.HandleCallNotification(r.Context(), body); err != nil {
		g.log.Warn("notification_rejected", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "malformed notification"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}

func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !g.authorized(r) {
		g.log.Warn("gateway_secret_rejected",
			"reason_code", string(errorsx.ReasonGatewaySecret),
			"path", r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
		return
	}
	var act Activity
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&act); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed activity"})
		return
	}
	writeJSON(w, http.StatusOK, Activity{Type: "message", Text: g.reply(r.Context(), act)})
}

func (g *Gateway) handleManifest(w http.ResponseWriter, r *http.Request) {
	if g.cfg.StaticDir != "" {
		path := filepath.Join(g.cfg.StaticDir, "manifest.json")
		if _, err := os.Stat(path); err == nil {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      g.cfg.AppID,
		"name":    map[string]string{"short": g.cfg.BotName},
		"version": "1.0.0",
		"description": map[string]string{
			"short": "Real-time call translation between English, Russian and Spanish.",
		},
	})
}

func (g *Gateway) handleWellKnown(w http.ResponseWriter, _ *http.Request) {
	if g.cfg.AppID == "" {
		g.log.Warn("app_id_not_configured")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"apps": []map[string]string{
			{"appId": g.cfg.AppID, "appType": "Production"},
		},
		"isCompliant": true,
	})
}

func (g *Gateway) authorized(r *http.Request) bool {
	if g.cfg.SharedSecret == "" {
		return true
	}
	got := r.Header.Get("X-Gateway-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(g.cfg.SharedSecret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
