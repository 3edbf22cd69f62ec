package configutil

import (
	"testing"
	"time"
)

type remoteTranslatorSettings struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	TimeoutMS  *int   `mapstructure:"timeout_ms"`
	MaxRetries *int   `mapstructure:"max_retries"`
}

func TestDecodeStrict(t *testing.T) {
	input := map[string]any{
		"endpoint":   "http://translate.local/api",
		"api_key":    "k",
		"timeout_ms": "2500",
	}
	schema := Schema{
		Required: []string{"endpoint"},
		Optional: []string{"api_key", "timeout_ms", "max_retries"},
	}
	var settings remoteTranslatorSettings
	if err := DecodeStrict("translation.secondary.settings", input, schema, &settings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Endpoint != "http://translate.local/api" {
		t.Fatalf("endpoint not decoded: %q", settings.Endpoint)
	}
	if got := DurationMS(settings.TimeoutMS, 10000); got != 2500*time.Millisecond {
		t.Fatalf("weakly typed timeout not decoded, got %v", got)
	}
	if got := DurationMS(settings.MaxRetries, 42); got != 42*time.Millisecond {
		t.Fatalf("fallback not applied, got %v", got)
	}
}

func TestDecodeStrictRejectsUnknownKeys(t *testing.T) {
	input := map[string]any{
		"endpoint": "http://translate.local/api",
		"endpoynt": "typo",
	}
	schema := Schema{Required: []string{"endpoint"}}
	var settings remoteTranslatorSettings
	err := DecodeStrict("translation.secondary.settings", input, schema, &settings)
	if err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestDecodeStrictReportsMissingRequired(t *testing.T) {
	schema := Schema{Required: []string{"endpoint"}}
	var settings remoteTranslatorSettings
	err := DecodeStrict("translation.secondary.settings", map[string]any{"endpoint": "  "}, schema, &settings)
	if err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestNormalizedKeyMatch(t *testing.T) {
	input := map[string]any{"API-KEY": "secret"}
	var settings remoteTranslatorSettings
	if err := DecodeSettings(input, &settings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.APIKey != "secret" {
		t.Fatalf("hyphenated key not matched: %q", settings.APIKey)
	}
}
