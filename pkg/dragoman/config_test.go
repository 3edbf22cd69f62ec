package dragoman

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("DRAGOMAN_CLIENT_ID", "client-1")
	t.Setenv("DRAGOMAN_GATEWAY_SECRET", "hush")

	path := writeConfig(t, `
environment: test
log_level: debug

credentials:
  provider: http
  settings:
    token_url: https://login.example.com/token
    client_id: ${DRAGOMAN_CLIENT_ID}
    client_secret: secret

platform:
  provider: mock

segments:
  provider: script

translate:
  budget_ms: 5000
  strategies:
    - provider: model
    - provider: tag

synthesis:
  provider: http
  default_voice: en-female
  voices:
    - id: en-female
      language: en-US
      name: Jenny

calls:
  default_target: ru-RU

gateway:
  addr: ":4000"
  shared_secret: ${DRAGOMAN_GATEWAY_SECRET}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "test" || cfg.LogLevel != "debug" {
		t.Fatalf("environment/log_level = %s/%s", cfg.Environment, cfg.LogLevel)
	}
	if got := cfg.Credentials.Settings["client_id"]; got != "client-1" {
		t.Fatalf("client_id = %v, want expanded env value", got)
	}
	if cfg.Gateway.SharedSecret != "hush" {
		t.Fatalf("shared secret = %q, want expanded env value", cfg.Gateway.SharedSecret)
	}
	if cfg.Gateway.Addr != ":4000" {
		t.Fatalf("gateway addr = %q", cfg.Gateway.Addr)
	}
	if cfg.Translate.BudgetMS != 5000 || len(cfg.Translate.Strategies) != 2 {
		t.Fatalf("translate = %+v", cfg.Translate)
	}
	if cfg.Translate.Strategies[0].Provider != "model" || cfg.Translate.Strategies[1].Provider != "tag" {
		t.Fatalf("strategy order = %+v", cfg.Translate.Strategies)
	}
	if cfg.Calls.DefaultSource != "en-US" || cfg.Calls.DefaultTarget != "ru-RU" {
		t.Fatalf("calls = %+v", cfg.Calls)
	}
	if len(cfg.Synthesis.Voices) != 1 || cfg.Synthesis.Voices[0].ID != "en-female" {
		t.Fatalf("voices = %+v", cfg.Synthesis.Voices)
	}

	// Defaults.
	if cfg.Credentials.MarginSeconds != 300 {
		t.Fatalf("margin = %d, want 300", cfg.Credentials.MarginSeconds)
	}
	if cfg.Calls.CycleBudgetMS != 10000 {
		t.Fatalf("cycle budget = %d, want 10000", cfg.Calls.CycleBudgetMS)
	}
	if cfg.Synthesis.MinAudioBytes != 100 {
		t.Fatalf("min audio bytes = %d, want 100", cfg.Synthesis.MinAudioBytes)
	}
	if !cfg.Privacy.RedactTranscripts {
		t.Fatalf("redact_transcripts default = false, want true")
	}
	if cfg.Gateway.MessageBudget != 10*time.Second {
		t.Fatalf("message budget = %s, want 10s", cfg.Gateway.MessageBudget)
	}
	if len(cfg.Gateway.SupportedLanguages) != 3 {
		t.Fatalf("supported languages = %v", cfg.Gateway.SupportedLanguages)
	}
}

func TestLoadConfigRequiresProviders(t *testing.T) {
	path := writeConfig(t, `
credentials:
  provider: http

segments:
  provider: script

synthesis:
  provider: http

translate:
  strategies:
    - provider: tag
`)

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "platform.provider is required") {
		t.Fatalf("err = %v, want missing platform provider", err)
	}
}

func TestValidateStrategyEntries(t *testing.T) {
	cfg := Config{
		Credentials: CredentialsConfig{Provider: "http"},
		Platform:    ProviderConfig{Provider: "mock"},
		Segments:    ProviderConfig{Provider: "script"},
		Synthesis:   SynthesisConfig{Provider: "http"},
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "translate.strategies") {
		t.Fatalf("err = %v, want strategy requirement", err)
	}

	cfg.Translate.Strategies = []ProviderConfig{{Provider: "model"}, {Provider: " "}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "translate.strategies[1]") {
		t.Fatalf("err = %v, want empty strategy provider rejection", err)
	}
}
