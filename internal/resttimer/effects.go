package resttimer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// NopEffects discards all side effects. Used when no notification channel
// is configured; connected clients still hear about completion through the
// event stream.
type NopEffects struct{}

func (NopEffects) Chime(context.Context) error          { return nil }
func (NopEffects) Vibrate(context.Context) error        { return nil }
func (NopEffects) Notify(context.Context, string) error { return nil }

// WebhookEffects raises the system notification by POSTing to a webhook
// (e.g. an ntfy topic). Chime and vibration stay with the clients; only
// Notify leaves the process.
type WebhookEffects struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewWebhookEffects creates a notifier targeting url.
func NewWebhookEffects(url string, log *slog.Logger) *WebhookEffects {
	return &WebhookEffects{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log,
	}
}

func (w *WebhookEffects) Chime(context.Context) error   { return nil }
func (w *WebhookEffects) Vibrate(context.Context) error { return nil }

func (w *WebhookEffects) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
