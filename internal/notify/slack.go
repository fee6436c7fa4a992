// Package notify delivers operational reports (daily summaries, DLQ
// alerts) to a human-facing channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const slackPostMessageEndpoint = "https://slack.com/api/chat.postMessage"

// SlackSink delivers notifications to a Slack channel via the
// chat.postMessage Web API.
type SlackSink struct {
	client  *http.Client
	token   string
	channel string
	// postURL overrides slackPostMessageEndpoint; tests point it at an
	// httptest.Server instead of the real Slack API.
	postURL string
}

// NewSlackSink constructs a Slack notification sink. client may be nil,
// in which case a client with a 10s timeout is used.
func NewSlackSink(client *http.Client, botToken, channel string) *SlackSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SlackSink{
		client:  client,
		token:   strings.TrimSpace(botToken),
		channel: strings.TrimSpace(channel),
	}
}

// Send posts a message composed of title and body to the configured
// channel.
func (s *SlackSink) Send(ctx context.Context, title, body string) error {
	if s.token == "" {
		return fmt.Errorf("notify: slack bot token is not configured")
	}
	if s.channel == "" {
		return fmt.Errorf("notify: slack channel is not configured")
	}

	text := strings.TrimSpace(title)
	if body = strings.TrimSpace(body); body != "" {
		if text != "" {
			text += "\n"
		}
		text += body
	}
	if text == "" {
		return fmt.Errorf("notify: message is required")
	}

	payload, err := json.Marshal(map[string]string{
		"channel": s.channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal slack payload: %w", err)
	}

	endpoint := s.postURL
	if endpoint == "" {
		endpoint = slackPostMessageEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build slack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: slack send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		out, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify: slack send failed: status %d (%s)", resp.StatusCode, string(out))
	}

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK && result.Error != "" {
		return fmt.Errorf("notify: slack rejected message: %s", result.Error)
	}

	return nil
}
