// Package builder probes the downstream provisioning builder for capacity.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"leadgate/internal/submission"
)

// HTTPProbe queries the builder's capacity endpoint. A probe failure is a
// degraded answer, never an error: the submission flow must not stall on the
// builder being slow or down, so failures report BuilderPending and the
// classification engine routes the submission to review.
type HTTPProbe struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPProbe constructs a probe against the given base URL. The timeout
// bounds each probe call independently of the caller's deadline.
func NewHTTPProbe(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPProbe, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("builder base url is required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("probe timeout must be positive")
	}
	return &HTTPProbe{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

type capacityResponse struct {
	Status string `json:"status"`
}

// Status reports the builder's current capacity signal.
func (p *HTTPProbe) Status(ctx context.Context) submission.BuilderStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/capacity", nil)
	if err != nil {
		return p.degrade(ctx, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return p.degrade(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.degrade(ctx, fmt.Errorf("capacity endpoint returned %d", resp.StatusCode))
	}

	var body capacityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return p.degrade(ctx, fmt.Errorf("decode capacity response: %w", err))
	}

	switch submission.BuilderStatus(body.Status) {
	case submission.BuilderAvailable, submission.BuilderConstrained,
		submission.BuilderPending, submission.BuilderUnavailable:
		return submission.BuilderStatus(body.Status)
	default:
		return p.degrade(ctx, fmt.Errorf("unknown capacity status %q", body.Status))
	}
}

func (p *HTTPProbe) degrade(ctx context.Context, err error) submission.BuilderStatus {
	if p.logger != nil {
		p.logger.WarnContext(ctx, "builder probe degraded", "error", err)
	}
	return submission.BuilderPending
}

// Static is a fixed-answer probe for development and tests.
type Static submission.BuilderStatus

// Status returns the configured answer.
func (s Static) Status(context.Context) submission.BuilderStatus {
	return submission.BuilderStatus(s)
}
