package synthesis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dragomanhq/dragoman/pkg/resilience"
)

func TestHTTPEngineRendersAudio(t *testing.T) {
	var got renderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(make([]byte, 512))
	}))
	defer srv.Close()

	engine := NewHTTPEngine(EngineConfig{BaseURL: srv.URL, APIKey: "synth-key"})
	data, err := engine.Render(context.Background(), "Hola mundo", "voice-es")
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if len(data) != 512 {
		t.Fatalf("data len=%d", len(data))
	}
	if got.Text != "Hola mundo" || got.VoiceID != "voice-es" {
		t.Fatalf("request=%+v", got)
	}
}

func TestHTTPEngineRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	engine := NewHTTPEngine(EngineConfig{BaseURL: srv.URL})
	_, err := engine.Render(context.Background(), "Hola", "voice-es")
	if !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestHTTPEngineServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "renderer crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := NewHTTPEngine(EngineConfig{BaseURL: srv.URL})
	if _, err := engine.Render(context.Background(), "Hola", "voice-es"); err == nil {
		t.Fatal("expected error")
	}
}
