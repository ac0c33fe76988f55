// Package slack sends escalation notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/scribe/internal/draft"
)

const (
	maxTextLen  = 3000
	httpTimeout = 10 * time.Second
)

// Notifier posts escalations to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, NotifyEscalation
// is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// NotifyEscalation posts an escalated draft to the configured webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) NotifyEscalation(ctx context.Context, e *draft.Escalation, v *draft.Version) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(e, v)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(e *draft.Escalation, v *draft.Version) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(e),
			{"type": "divider"},
			fieldsBlock(e, v),
			{"type": "divider"},
			draftBlock(v),
			{"type": "divider"},
			contextBlock(e),
		},
	}
}

func headerBlock(e *draft.Escalation) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("\U0001f6a8 Draft Escalated: %s", e.NoticeID),
		},
	}
}

func fieldsBlock(e *draft.Escalation, v *draft.Version) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Notice:* %s", e.NoticeID),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Draft version:* %d", v.VersionNo),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.2f", e.Confidence),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Channel:* %s", e.Channel),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Risk flag:* %s", v.RiskFlag),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Editor:* %s", v.EditorID),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func draftBlock(v *draft.Version) map[string]any {
	text := truncate(v.EditedText, maxTextLen)
	if text == "" {
		text = "_No draft text._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Draft*\n\n%s", text),
		},
	}
}

func contextBlock(e *draft.Escalation) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("scribe • escalation %s • %s", e.ID, e.Reason),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
