package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/signalbot/internal/notifier"
)

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestWebhook_Name(t *testing.T) {
	w := New("http://example.com/hook", nil)
	if w.Name() != "webhook" {
		t.Errorf("expected 'webhook', got %s", w.Name())
	}
}

func TestWebhook_Init_RequiresURL(t *testing.T) {
	w := &Webhook{}
	err := w.Init(notifier.Config{Params: map[string]any{}})
	if err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestWebhook_Init_WithURL(t *testing.T) {
	w := &Webhook{}
	err := w.Init(notifier.Config{
		Params: map[string]any{
			"url":     "http://example.com/hook",
			"headers": map[string]any{"X-Token": "abc"},
		},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if w.url != "http://example.com/hook" {
		t.Errorf("expected url, got %s", w.url)
	}
	if w.headers["X-Token"] != "abc" {
		t.Errorf("expected header from config, got %v", w.headers)
	}
}

func TestWebhook_Send(t *testing.T) {
	var received Payload
	var token string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Token")
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := New(server.URL, map[string]string{"X-Token": "secret"})

	msg := "🔴 BOT SELL: AAPL at $160.00 | P/L: 10.00"
	if err := w.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Text != msg {
		t.Errorf("text = %q, want %q", received.Text, msg)
	}
	if received.Source != "signalbot" {
		t.Errorf("source = %q", received.Source)
	}
	if token != "secret" {
		t.Errorf("expected custom header, got %q", token)
	}
}

func TestWebhook_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	w := New(server.URL, nil)
	if err := w.Send(context.Background(), "msg"); err == nil {
		t.Error("expected error for 5xx response")
	}
}
