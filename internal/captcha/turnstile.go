// Package captcha validates CAPTCHA tokens against the Turnstile siteverify
// endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Verifier is the token validation contract the gateway depends on.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// ErrTokenRejected indicates the vendor rejected the token. Distinct from
// transport failures so callers can treat both as a hard security failure
// while logging them differently.
var ErrTokenRejected = fmt.Errorf("captcha token rejected")

// Turnstile verifies tokens against Cloudflare's siteverify API.
type Turnstile struct {
	secret   string
	endpoint string
	client   *http.Client
}

// NewTurnstile constructs a verifier with the given shared secret.
func NewTurnstile(secret, endpoint string) *Turnstile {
	return &Turnstile{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode siteverify response: %w", err)
	}
	if !body.Success {
		return fmt.Errorf("%w: %s", ErrTokenRejected, strings.Join(body.ErrorCodes, ","))
	}
	return nil
}
