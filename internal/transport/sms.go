package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tribe-notify.io/notify/internal/config"
)

// SMSTransport delivers through a form-encoded SMS provider API
// (POST {base_url}/Messages, basic-auth style API key).
type SMSTransport struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client

	// addressPrefix is prepended to both endpoints of the message; the
	// WhatsApp adapter reuses this transport with "whatsapp:" per the
	// provider's channel addressing convention.
	addressPrefix string
}

// NewSMSTransport creates an SMS adapter from transport config.
func NewSMSTransport(cfg config.TransportConfig) *SMSTransport {
	return newSMSTransport(cfg, "")
}

func newSMSTransport(cfg config.TransportConfig, addressPrefix string) *SMSTransport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSTransport{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		from:          cfg.From,
		client:        &http.Client{Timeout: timeout},
		addressPrefix: addressPrefix,
	}
}

type smsResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

// Send posts one text message and returns the provider message SID.
// SMS has no subject line; only the body is sent.
func (t *SMSTransport) Send(ctx context.Context, msg Message) (string, error) {
	form := url.Values{}
	form.Set("From", t.addressPrefix+t.from)
	form.Set("To", t.addressPrefix+msg.To)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/Messages", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read sms provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("sms provider status %d: %s", resp.StatusCode, truncate(body))
	}

	var out smsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode sms provider response: %w", err)
	}
	return out.SID, nil
}
