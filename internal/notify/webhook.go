package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/config"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

const webhookTimeout = 10 * time.Second

// WebhookChannel posts reports to a Slack-style or generic JSON webhook.
// The target URL is resolved from the environment at send time, so a
// rotated secret takes effect without a restart.
type WebhookChannel struct {
	cfg    config.WebhookConfig
	client *http.Client
}

// NewWebhook creates a webhook channel for one configured target.
func NewWebhook(cfg config.WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// Name implements dispatch.Channel.
func (c *WebhookChannel) Name() string { return "webhook-" + c.cfg.Type }

// Send delivers message as a JSON payload shaped for the target type.
func (c *WebhookChannel) Send(ctx context.Context, message string, severity types.Severity) error {
	url := c.cfg.URL()
	if url == "" {
		return fmt.Errorf("webhook: %s target URL not configured", c.cfg.Type)
	}

	var payload any
	switch c.cfg.Type {
	case "slack":
		payload = map[string]string{
			"text": fmt.Sprintf("*%s*\n%s", severity.Label(), message),
		}
	default:
		payload = map[string]string{
			"message":  message,
			"severity": string(severity),
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: target returned HTTP %d", resp.StatusCode)
	}
	return nil
}
