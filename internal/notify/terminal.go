package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// TerminalChannel writes notifications to a terminal stream.
type TerminalChannel struct {
	writer  io.Writer
	enabled bool
}

// NewTerminalChannel creates a channel writing to stderr.
func NewTerminalChannel(enabled bool) *TerminalChannel {
	return &TerminalChannel{writer: os.Stderr, enabled: enabled}
}

func (c *TerminalChannel) Name() string    { return "terminal" }
func (c *TerminalChannel) IsEnabled() bool { return c.enabled }

func (c *TerminalChannel) Send(_ context.Context, n Notification) error {
	prefix := "•"
	switch n.Type {
	case NotificationTrade:
		prefix = "$"
	case NotificationExit:
		prefix = "×"
	case NotificationError:
		prefix = "!"
	}
	_, err := fmt.Fprintf(c.writer, "%s [%s] %s: %s\n",
		prefix, n.Timestamp.Format("15:04:05"), n.Title, n.Message)
	return err
}

// WebhookChannel POSTs notifications as JSON to a configured URL, for Slack
// or Discord style integrations.
type WebhookChannel struct {
	url        string
	httpClient *http.Client
}

// NewWebhookChannel creates a webhook channel. An empty URL disables it.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WebhookChannel) Name() string    { return "webhook" }
func (c *WebhookChannel) IsEnabled() bool { return c.url != "" }

func (c *WebhookChannel) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type":      string(n.Type),
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
