// Package dragoman assembles the interpreter engine: credentials, the call
// session registry, the translation pipeline, speech synthesis, per-call
// audio monitors, the call controller and the HTTP gateway, wired together
// behind one Start/Stop lifecycle.
package dragoman

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dragomanhq/dragoman/pkg/callctl"
	"github.com/dragomanhq/dragoman/pkg/credential"
	"github.com/dragomanhq/dragoman/pkg/gateway"
	"github.com/dragomanhq/dragoman/pkg/logging"
	"github.com/dragomanhq/dragoman/pkg/metrics"
	"github.com/dragomanhq/dragoman/pkg/monitor"
	"github.com/dragomanhq/dragoman/pkg/observers"
	"github.com/dragomanhq/dragoman/pkg/platform"
	"github.com/dragomanhq/dragoman/pkg/redact"
	"github.com/dragomanhq/dragoman/pkg/runner"
	"github.com/dragomanhq/dragoman/pkg/segments"
	"github.com/dragomanhq/dragoman/pkg/session"
	"github.com/dragomanhq/dragoman/pkg/synthesis"
	"github.com/dragomanhq/dragoman/pkg/translate"
)

type Engine struct {
	cfg        Config
	providers  *ProviderRegistry
	registry   *session.Registry
	monitors   *monitor.Manager
	controller *callctl.Controller
	gateway    *gateway.Gateway
	handoff    *synthesis.Handoff
	translator *translate.Pipeline
	driver     platform.Driver
	runner     *runner.LifecycleRunner
	asyncObs   *metrics.AsyncObserver
	ctx        context.Context
	cancel     context.CancelFunc
	log        *slog.Logger
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	Logger    *slog.Logger

	// Direct component overrides. When set they take precedence over the
	// registered provider for the same concern.
	Exchanger   credential.Exchanger
	Driver      platform.Driver
	Sources     segments.Factory
	Strategies  []translate.Strategy
	SynthEngine synthesis.Engine
	Player      monitor.Player
	Observers   []metrics.Observer
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config.withDefaults()

	base := opts.Logger
	if base == nil {
		base = logging.Setup(cfg.LogLevel, cfg.LogFormat)
	}
	log := logging.NewComponentLogger(base, "engine")
	redact.SetEnabled(cfg.Privacy.RedactTranscripts)

	log.Info("dragoman_init",
		"environment", cfg.Environment,
		"platform_provider", cfg.Platform.Provider,
		"segment_provider", cfg.Segments.Provider,
		"synthesis_provider", cfg.Synthesis.Provider,
		"strategies", len(cfg.Translate.Strategies),
	)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}

	// Sampling thins only the per-event log lines. Latency and artifact
	// observers see the full stream.
	var loggerObs metrics.Observer = observers.NewLoggerObserver(base)
	if r := cfg.Observability.SampleRate; r < 1 {
		loggerObs = metrics.NewSamplingObserver(loggerObs, r)
	}
	obsList := []metrics.Observer{
		observers.NewCycleLatencyObserver(base),
		loggerObs,
	}
	var timelineObs *observers.TimelineObserver
	var usageObs *observers.UsageObserver
	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		if cfg.Observability.RetentionDays > 0 {
			_, _ = observers.PurgeArtifacts(dir, time.Duration(cfg.Observability.RetentionDays)*24*time.Hour)
		}
		timelineObs = observers.NewTimelineObserver(dir)
		usageObs = observers.NewUsageObserver(dir)
		obsList = append(obsList, timelineObs, usageObs)
	}
	var eventLog *os.File
	if path := strings.TrimSpace(cfg.Observability.EventLogFile); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Warn("event_log_open_failed", "path", path, "error", err)
		} else {
			eventLog = f
			obsList = append(obsList, metrics.NewJSONLObserver(f))
		}
	}
	obsList = append(obsList, opts.Observers...)
	asyncObs := metrics.NewAsyncObserver(observers.NewMultiObserver(obsList...), 2048)

	exchanger := opts.Exchanger
	if exchanger == nil {
		var err error
		exchanger, err = providers.BuildExchanger(cfg.Credentials.Provider, cfg, cfg.Credentials.Settings)
		if err != nil {
			return nil, err
		}
	}
	creds := credential.NewManager(exchanger, credential.Config{
		Margin: time.Duration(cfg.Credentials.MarginSeconds) * time.Second,
		Logger: base,
	})

	driver := opts.Driver
	if driver == nil {
		var err error
		driver, err = providers.BuildDriver(cfg.Platform.Provider, cfg, cfg.Platform.Settings)
		if err != nil {
			return nil, err
		}
	}

	strategies := opts.Strategies
	if len(strategies) == 0 {
		for _, sc := range cfg.Translate.Strategies {
			s, err := providers.BuildStrategy(sc.Provider, cfg, sc.Settings)
			if err != nil {
				return nil, err
			}
			strategies = append(strategies, s)
		}
	}
	translator := translate.NewPipeline(translate.Config{
		Strategies: strategies,
		Budget:     time.Duration(cfg.Translate.BudgetMS) * time.Millisecond,
		Logger:     base,
	})

	synthEngine := opts.SynthEngine
	if synthEngine == nil {
		var err error
		synthEngine, err = providers.BuildSynthEngine(cfg.Synthesis.Provider, cfg, cfg.Synthesis.Settings)
		if err != nil {
			return nil, err
		}
	}
	voices := make([]synthesis.Voice, 0, len(cfg.Synthesis.Voices))
	for _, vc := range cfg.Synthesis.Voices {
		voices = append(voices, synthesis.Voice{ID: vc.ID, Language: vc.Language, Name: vc.Name})
	}
	handoff := synthesis.NewHandoff(synthesis.Config{
		Engine:        synthEngine,
		Catalog:       synthesis.NewVoiceCatalog(voices, cfg.Synthesis.DefaultVoice),
		MinAudioBytes: cfg.Synthesis.MinAudioBytes,
		Logger:        base,
	})

	sources := opts.Sources
	if sources == nil {
		var err error
		sources, err = providers.BuildSourceFactory(cfg.Segments.Provider, cfg, cfg.Segments.Settings)
		if err != nil {
			return nil, err
		}
	}

	registry := session.NewRegistry(base)

	player := opts.Player
	if player == nil && cfg.Calls.AudioDir != "" {
		player = monitor.NewFilePlayer(cfg.Calls.AudioDir, base)
	}

	monitors := monitor.NewManager(monitor.Config{
		Registry:    registry,
		Translator:  translator,
		Synthesizer: handoff,
		Player:      player,
		Observer:    asyncObs,
		CycleBudget: time.Duration(cfg.Calls.CycleBudgetMS) * time.Millisecond,
		Logger:      base,
	})

	controller := callctl.New(callctl.Config{
		Credentials:   creds,
		Driver:        driver,
		Registry:      registry,
		Monitors:      monitors,
		Sources:       sources,
		DefaultSource: cfg.Calls.DefaultSource,
		DefaultTarget: cfg.Calls.DefaultTarget,
		Logger:        base,
	})

	gw := gateway.New(cfg.Gateway, controller, translator)

	hooks := runner.Hooks{
		OnStart: func() {
			log.Info("engine_ready", "addr", gw.Config().Addr, "bot", gw.Config().BotName)
		},
		OnStop: func() {
			asyncObs.Close()
			if timelineObs != nil {
				_ = timelineObs.Close()
			}
			if usageObs != nil {
				_ = usageObs.Close()
			}
			if eventLog != nil {
				_ = eventLog.Close()
			}
			log.Info("shutdown", "goroutines", runtime.NumGoroutine(), "active_calls", registry.Count())
		},
	}

	drainer := runner.DrainerFunc(func() error {
		_ = gw.Stop()
		registry.SetDraining(true)
		monitors.StopAll()
		registry.CloseAll()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		_ = monitors.WaitIdle(ctx, 200*time.Millisecond)
		return nil
	})

	lr := runner.NewLifecycleRunner(drainer, hooks, 30*time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:        cfg,
		providers:  providers,
		registry:   registry,
		monitors:   monitors,
		controller: controller,
		gateway:    gw,
		handoff:    handoff,
		translator: translator,
		driver:     driver,
		runner:     lr,
		asyncObs:   asyncObs,
		ctx:        ctx,
		cancel:     cancel,
		log:        log,
	}, nil
}

func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.ensureWelcomeAudio(ctx)
	if err := e.gateway.Start(ctx); err != nil {
		return err
	}
	go func() {
		_ = e.runner.Run(ctx)
	}()
	return nil
}

func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	return e.runner.Stop()
}

// ensureWelcomeAudio renders the welcome prompt into the static dir when it
// is not already there, so the platform can fetch it on answer. Failure is
// logged and ignored; calls still work without the prompt.
func (e *Engine) ensureWelcomeAudio(ctx context.Context) {
	dir := e.gateway.Config().StaticDir
	if dir == "" {
		return
	}
	path := filepath.Join(dir, platform.WelcomeResourceID+".wav")
	if _, err := os.Stat(path); err == nil {
		return
	}
	text := fmt.Sprintf("Welcome to the %s. I will translate the conversation for you.", e.gateway.Config().BotName)
	audio, err := e.handoff.Synthesize(ctx, text, e.cfg.Calls.DefaultSource)
	if err != nil {
		e.log.Warn("welcome_audio_failed", "error", err)
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.log.Warn("welcome_audio_failed", "error", err)
		return
	}
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		e.log.Warn("welcome_audio_failed", "error", err)
		return
	}
	e.log.Info("welcome_audio_ready", "path", path)
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Providers() *ProviderRegistry {
	return e.providers
}

func (e *Engine) Registry() *session.Registry {
	return e.registry
}

func (e *Engine) Controller() *callctl.Controller {
	return e.controller
}

func (e *Engine) Monitors() *monitor.Manager {
	return e.monitors
}

func (e *Engine) Gateway() *gateway.Gateway {
	return e.gateway
}

func (e *Engine) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

func (e *Engine) Health() error {
	if e.driver == nil {
		return fmt.Errorf("missing platform driver")
	}
	return nil
}
