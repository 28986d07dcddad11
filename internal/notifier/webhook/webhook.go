// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newthinker/signalbot/internal/notifier"
)

// Payload is the JSON body posted for each alert
type Payload struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	SentAt string `json:"sent_at"`
}

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *resty.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  resty.New().SetTimeout(30 * time.Second),
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = url
	}
	switch headers := cfg.Params["headers"].(type) {
	case map[string]string:
		w.headers = headers
	case map[string]any:
		w.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			w.headers[k] = fmt.Sprint(v)
		}
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = resty.New().SetTimeout(30 * time.Second)
	}

	return nil
}

func (w *Webhook) Send(ctx context.Context, message string) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(w.headers).
		SetBody(Payload{
			Text:   message,
			Source: "signalbot",
			SentAt: time.Now().UTC().Format(time.RFC3339),
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode())
	}

	return nil
}
