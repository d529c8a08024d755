package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"oee-tracker/internal/storage"
)

// Notifier delivers a triggered alert to the admin users.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert storage.Alert, recipients []int64) error
}

// LogNotifier writes one record per recipient.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Notify(_ context.Context, alert storage.Alert, recipients []int64) error {
	for _, userID := range recipients {
		n.log.Info("alert notification",
			slog.Int64("user_id", userID),
			slog.Int64("alert_id", alert.ID),
			slog.String("severity", alert.Severity),
			slog.String("title", alert.Title),
		)
	}
	return nil
}

type WebhookPayload struct {
	EventType  string        `json:"event_type"`
	Alert      storage.Alert `json:"alert"`
	Recipients []int64       `json:"recipients"`
	Timestamp  time.Time     `json:"timestamp"`
}

// WebhookNotifier posts the alert as JSON. An empty URL disables it.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Name() string {
	return "webhook"
}

func (n *WebhookNotifier) Notify(ctx context.Context, alert storage.Alert, recipients []int64) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(WebhookPayload{
		EventType:  "alert.triggered",
		Alert:      alert,
		Recipients: recipients,
		Timestamp:  time.Now(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
