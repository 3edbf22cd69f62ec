package credential

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
)

func TestHTTPExchangerPostsClientCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("client_id"); got != "app-id" {
			t.Errorf("client_id = %q", got)
		}
		if got := r.PostForm.Get("scope"); got != "https://platform.example/.default" {
			t.Errorf("scope = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	ex := NewHTTPExchanger(ExchangerConfig{
		TokenURL:     srv.URL,
		ClientID:     "app-id",
		ClientSecret: "s3cret",
		Scope:        "https://platform.example/.default",
	})
	cred, err := ex.Exchange(context.Background())
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if cred.Token != "tok-abc" {
		t.Fatalf("token = %q", cred.Token)
	}
	until := time.Until(cred.ExpiresAt)
	if until < 59*time.Minute || until > 61*time.Minute {
		t.Fatalf("expiry not derived from expires_in: %v", until)
	}
}

func TestHTTPExchangerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	ex := NewHTTPExchanger(ExchangerConfig{TokenURL: srv.URL, ClientID: "x", ClientSecret: "y"})
	_, err := ex.Exchange(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonAuthRejected) {
		t.Fatalf("expected auth_rejected, got %s", errorsx.Reason(err))
	}
}

func TestHTTPExchangerMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	}))
	defer srv.Close()

	ex := NewHTTPExchanger(ExchangerConfig{TokenURL: srv.URL, ClientID: "x", ClientSecret: "y"})
	_, err := ex.Exchange(context.Background())
	if err == nil {
		t.Fatalf("expected error for empty access_token")
	}
}
