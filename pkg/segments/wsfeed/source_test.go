package wsfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dragomanhq/dragoman/pkg/segments"
)

func feedServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn, r)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSourceAssemblesCaptionEvents(t *testing.T) {
	srv := feedServer(t, func(conn *websocket.Conn, r *http.Request) {
		_ = conn.WriteJSON(map[string]any{"text": "hola", "language": "es-CO", "final": false})
		_ = conn.WriteJSON(map[string]any{"text": "como estas.", "language": "es-CO", "final": true})
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	src := New(Config{URL: wsURL(srv), CallID: "call-1"})
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	seg, err := src.NextSegment(ctx)
	if err != nil {
		t.Fatalf("NextSegment error: %v", err)
	}
	if seg.Text != "hola como estas." {
		t.Fatalf("text=%q", seg.Text)
	}
	if seg.Language != "es-CO" {
		t.Fatalf("language=%q", seg.Language)
	}
}

func TestSourceReportsClosedFeed(t *testing.T) {
	srv := feedServer(t, func(conn *websocket.Conn, r *http.Request) {
		_ = conn.WriteJSON(map[string]any{"text": "goodbye.", "final": true})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})
	defer srv.Close()

	src := New(Config{URL: wsURL(srv), Language: "en-US", CallID: "call-2"})
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	seg, err := src.NextSegment(ctx)
	if err != nil {
		t.Fatalf("NextSegment error: %v", err)
	}
	if seg.Text != "goodbye." {
		t.Fatalf("text=%q", seg.Text)
	}
	if seg.Language != "en-US" {
		t.Fatalf("default language not applied: %q", seg.Language)
	}

	if _, err := src.NextSegment(ctx); !errors.Is(err, segments.ErrClosed) {
		t.Fatalf("expected ErrClosed after feed shutdown, got %v", err)
	}
}

func TestSourceSendsBearerToken(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := feedServer(t, func(conn *websocket.Conn, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	src := New(Config{URL: wsURL(srv), AuthToken: "feed-token", CallID: "call-3"})
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer src.Close()

	select {
	case auth := <-gotAuth:
		if auth != "Bearer feed-token" {
			t.Fatalf("authorization=%q", auth)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handshake")
	}
}
