package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func sendMessage(t *testing.T, f *fixture, act Activity) string {
	t.Helper()
	raw, err := json.Marshal(act)
	if err != nil {
		t.Fatalf("marshal activity: %v", err)
	}
	resp := f.post(t, "/api/messages", raw, "")
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("message status = %d, want 200", resp.StatusCode)
	}
	var out Activity
	decodeBody(t, resp, &out)
	if out.Type != "message" {
		t.Fatalf("reply type = %q, want message", out.Type)
	}
	return out.Text
}

func TestMessagesGreeting(t *testing.T) {
	f := newFixture(t, Config{})

	reply := sendMessage(t, f, Activity{Type: "message", Text: "  "})
	if !strings.Contains(reply, "Hello! I'm the Dragoman Interpreter Bot") {
		t.Fatalf("greeting = %q", reply)
	}
	if !strings.Contains(reply, "/help") {
		t.Fatalf("greeting does not mention /help: %q", reply)
	}
}

func TestMessagesHelp(t *testing.T) {
	f := newFixture(t, Config{})

	reply := sendMessage(t, f, Activity{Type: "message", Text: "/help"})
	if !strings.Contains(reply, "Available commands:") {
		t.Fatalf("help = %q", reply)
	}
	if !strings.Contains(reply, "/language <source> <target>") {
		t.Fatalf("help does not describe /language: %q", reply)
	}
	if !strings.Contains(reply, "en-US, ru-RU, es-CO") {
		t.Fatalf("help does not list supported codes: %q", reply)
	}
}

func TestMessagesUnknownCommand(t *testing.T) {
	f := newFixture(t, Config{})

	reply := sendMessage(t, f, Activity{Type: "message", Text: "/dance now"})
	want := "Unknown command: /dance\nType /help for available commands."
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestMessagesLanguageUpdatesCall(t *testing.T) {
	f := newFixture(t, Config{})
	f.answerCall(t, "call-1")

	reply := sendMessage(t, f, Activity{Type: "message", Text: "/language ru-RU en-US", CallID: "call-1"})
	want := "Languages for call call-1 set to ru-RU -> en-US."
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}

	sess, ok := f.reg.Get("call-1")
	if !ok {
		t.Fatalf("session disappeared")
	}
	source, target := sess.Languages()
	if source != "ru-RU" || target != "en-US" {
		t.Fatalf("languages = %s -> %s, want ru-RU -> en-US", source, target)
	}
}

func TestMessagesLanguageValidation(t *testing.T) {
	f := newFixture(t, Config{})
	f.answerCall(t, "call-1")

	reply := sendMessage(t, f, Activity{Type: "message", Text: "/language xx-XX en-US", CallID: "call-1"})
	if !strings.HasPrefix(reply, "Unsupported language code: xx-XX") {
		t.Fatalf("reply = %q", reply)
	}

	reply = sendMessage(t, f, Activity{Type: "message", Text: "/language ru-RU", CallID: "call-1"})
	if !strings.HasPrefix(reply, "Usage: /language <source> <target>") {
		t.Fatalf("arity reply = %q", reply)
	}

	reply = sendMessage(t, f, Activity{Type: "message", Text: "/language ru-RU en-US"})
	if !strings.Contains(reply, "callId") {
		t.Fatalf("missing call reply = %q", reply)
	}

	reply = sendMessage(t, f, Activity{Type: "message", Text: "/language ru-RU en-US", CallID: "ghost"})
	if reply != "No active call ghost." {
		t.Fatalf("unknown call reply = %q", reply)
	}

	reply = sendMessage(t, f, Activity{Type: "message", Text: "/language", CallID: "call-1"})
	if !strings.Contains(reply, "Current languages for call call-1: en-US -> es-CO") {
		t.Fatalf("current pair reply = %q", reply)
	}
}

func TestMessagesStatusShowsCall(t *testing.T) {
	f := newFixture(t, Config{})
	f.answerCall(t, "call-1")

	reply := sendMessage(t, f, Activity{Type: "message", Text: "/status", CallID: "call-1"})
	if !strings.Contains(reply, "Bot status: Active") {
		t.Fatalf("status reply = %q", reply)
	}
	if !strings.Contains(reply, "Active calls: 1") {
		t.Fatalf("status reply missing call count: %q", reply)
	}
	if !strings.Contains(reply, "Call call-1: en-US -> es-CO") {
		t.Fatalf("status reply missing call line: %q", reply)
	}
}

func TestMessagesEchoTranslate(t *testing.T) {
	f := newFixture(t, Config{})

	reply := sendMessage(t, f, Activity{Type: "message", Text: "hola", Language: "es-CO"})
	if !strings.Contains(reply, "Your message: hola") {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(reply, "en-US: hola [en-US]") {
		t.Fatalf("reply missing en-US translation: %q", reply)
	}
	if !strings.Contains(reply, "ru-RU: hola [ru-RU]") {
		t.Fatalf("reply missing ru-RU translation: %q", reply)
	}
	if strings.Contains(reply, "es-CO:") {
		t.Fatalf("reply translated into the source language: %q", reply)
	}

	reqs := f.translator.requests()
	if len(reqs) != 2 {
		t.Fatalf("translate requests = %d, want 2", len(reqs))
	}
	for _, req := range reqs {
		if req.Source != "es-CO" {
			t.Fatalf("request source = %q, want es-CO", req.Source)
		}
		if req.Deadline.IsZero() {
			t.Fatalf("request deadline not set")
		}
	}
}

func TestMessagesEchoDefaultsSource(t *testing.T) {
	f := newFixture(t, Config{})

	reply := sendMessage(t, f, Activity{Type: "message", Text: "good morning"})
	if strings.Contains(reply, "en-US:") {
		t.Fatalf("reply translated into the default source language: %q", reply)
	}
	if !strings.Contains(reply, "ru-RU: good morning [ru-RU]") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestMessagesBadJSON(t *testing.T) {
	f := newFixture(t, Config{})

	resp := f.post(t, "/api/messages", []byte("{nope"), "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestMessagesSharedSecret(t *testing.T) {
	f := newFixture(t, Config{SharedSecret: "s3cret"})

	raw, err := json.Marshal(Activity{Type: "message", Text: "/help"})
	if err != nil {
		t.Fatalf("marshal activity: %v", err)
	}
	resp := f.post(t, "/api/messages", raw, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("missing secret status = %d, want 403", resp.StatusCode)
	}

	resp = f.post(t, "/api/messages", raw, "s3cret")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid secret status = %d, want 200", resp.StatusCode)
	}
}

func TestMessagesMethodNotAllowed(t *testing.T) {
	f := newFixture(t, Config{})

	resp, err := f.srv.Client().Get(f.srv.URL + "/api/messages")
	if err != nil {
		t.Fatalf("GET /api/messages: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}
