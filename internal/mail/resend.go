// Package mail sends transactional email through the Resend HTTP API.
// The only message the application sends is the verification-code email.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender delivers a verification code to an email address.
type Sender interface {
	SendCode(ctx context.Context, to, code string) error
}

// Resend implements Sender against the Resend API (POST /emails).
type Resend struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// NewResend creates a Resend-backed sender. baseURL is overridable for tests;
// pass "" for the production endpoint.
func NewResend(apiKey, from, baseURL string) *Resend {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &Resend{
		apiKey:  apiKey,
		from:    from,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendCode emails the verification code. The code is valid for five
// minutes; the template says so.
func (r *Resend) SendCode(ctx context.Context, to, code string) error {
	body := resendRequest{
		From:    r.from,
		To:      []string{to},
		Subject: "Your notepress verification code",
		HTML: fmt.Sprintf(
			`<p>Your verification code is:</p><p style="font-size:28px;letter-spacing:6px;font-weight:bold">%s</p><p>It expires in 5 minutes. If you did not request it, ignore this email.</p>`,
			code,
		),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("resend marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}
