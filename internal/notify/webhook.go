package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nexo-alert/internal/config"
)

type Payload struct {
	Subject string    `json:"subject"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sent_at"`
}

// DiscordPayload represents the structure for Discord Webhooks
type DiscordPayload struct {
	Content string `json:"content"`
}

// Webhook posts the plain-text digest as JSON. The chart is not sent.
type Webhook struct {
	client *http.Client
	hook   config.Webhook
	now    func() time.Time
}

func NewWebhook(hook config.Webhook) *Webhook {
	return &Webhook{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		hook: hook,
		now:  time.Now,
	}
}

func (w *Webhook) Name() string { return "webhook:" + w.hook.Name }

func (w *Webhook) Notify(ctx context.Context, msg Message) error {
	var body []byte
	var err error

	if w.hook.Provider == "discord" {
		body, err = json.Marshal(DiscordPayload{
			Content: fmt.Sprintf("**%s**\n%s", msg.Subject, msg.Text),
		})
	} else {
		body, err = json.Marshal(Payload{
			Subject: msg.Subject,
			Text:    msg.Text,
			SentAt:  w.now().UTC(),
		})
	}
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.hook.URL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "nexo-alert/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook responded with status: %d", resp.StatusCode)
	}

	// Rate Limit Wait
	if w.hook.PostInterval > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.hook.PostInterval):
		}
	}
	return nil
}
