package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/config"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// linePushEndpoint is the LINE Messaging API push endpoint.
const linePushEndpoint = "https://api.line.me/v2/bot/message/push"

const lineTimeout = 10 * time.Second

// LineChannel pushes text messages through the LINE Messaging API to one
// recipient user ID.
type LineChannel struct {
	cfg      config.LineConfig
	endpoint string
	client   *http.Client
	now      func() time.Time
}

// NewLine creates the LINE push channel from its config section.
func NewLine(cfg config.LineConfig) *LineChannel {
	return &LineChannel{
		cfg:      cfg,
		endpoint: linePushEndpoint,
		client:   &http.Client{Timeout: lineTimeout},
		now:      time.Now,
	}
}

// Name implements dispatch.Channel.
func (c *LineChannel) Name() string { return "line" }

// Send pushes message as one text message, prefixed with a severity header.
func (c *LineChannel) Send(ctx context.Context, message string, severity types.Severity) error {
	token := c.cfg.Token()
	to := c.cfg.To()
	if token == "" || to == "" {
		return fmt.Errorf("line: channel token or recipient not configured")
	}

	text := fmt.Sprintf("%s VM Infrastructure Alert\nTime: %s\n\n%s",
		severity.Label(), c.now().Format("2006-01-02 15:04:05"), message)

	payload, err := json.Marshal(map[string]any{
		"to": to,
		"messages": []map[string]string{
			{"type": "text", "text": text},
		},
	})
	if err != nil {
		return fmt.Errorf("line: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("line: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("line: http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line: push returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
