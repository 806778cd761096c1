package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// HTTPSender dispatches codes through an external delivery gateway. The
// vendor's API internals stay behind this boundary.
type HTTPSender struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSender constructs a sender against the given delivery gateway URL.
func NewHTTPSender(baseURL string) *HTTPSender {
	return &HTTPSender{baseURL: baseURL, client: &http.Client{}}
}

type sendRequest struct {
	To      string `json:"to"`
	Body    string `json:"body"`
	Channel string `json:"channel"`
}

type sendResponse struct {
	ReferenceID string `json:"reference_id"`
}

func (s *HTTPSender) Send(ctx context.Context, phone, code string, channel Channel) (string, error) {
	payload, err := json.Marshal(sendRequest{
		To:      phone,
		Body:    code,
		Channel: string(channel),
	})
	if err != nil {
		return "", fmt.Errorf("marshal delivery request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dispatch via %s: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("delivery gateway returned status %d", resp.StatusCode)
	}

	var body sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode delivery response: %w", err)
	}
	return body.ReferenceID, nil
}

// LogSender writes codes to the log instead of delivering them. Development
// use only; never configure it where real traffic arrives.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, phone, code string, channel Channel) (string, error) {
	s.Logger.WarnContext(ctx, "verification code logged, not delivered",
		"channel", channel,
		"code", code,
	)
	return "log-" + uuid.NewString(), nil
}
