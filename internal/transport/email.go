package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tribe-notify.io/notify/internal/config"
)

// EmailTransport delivers through a JSON mail provider API
// (POST {base_url}/messages with a bearer key).
type EmailTransport struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

// NewEmailTransport creates an email adapter from transport config.
func NewEmailTransport(cfg config.TransportConfig) *EmailTransport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmailTransport{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		client:  &http.Client{Timeout: timeout},
	}
}

type emailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type emailResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send posts one email and returns the provider message ID.
func (t *EmailTransport) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(emailRequest{
		From:    t.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.Body,
	})
	if err != nil {
		return "", fmt.Errorf("encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("email provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read email provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("email provider status %d: %s", resp.StatusCode, truncate(body))
	}

	var out emailResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode email provider response: %w", err)
	}
	return out.ID, nil
}

func truncate(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
