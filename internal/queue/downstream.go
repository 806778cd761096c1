package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"leadgate/internal/enrich"
	"leadgate/internal/submission"
)

// Provisioner creates the downstream account for an accepted lead. Vendor
// internals stay behind this boundary.
type Provisioner interface {
	Provision(ctx context.Context, sub *submission.Submission, enrichment *enrich.Result) error
}

// MarketingSink records the lead with the marketing-automation collaborator.
type MarketingSink interface {
	Submit(ctx context.Context, sub *submission.Submission, enrichment *enrich.Result) error
}

type downstreamPayload struct {
	ExternalID    string `json:"external_id"`
	FormName      string `json:"form_name"`
	Region        string `json:"region"`
	CompanyName   string `json:"company_name,omitempty"`
	Industry      string `json:"industry,omitempty"`
	HeadCount     string `json:"head_count,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
	BuilderStatus string `json:"builder_status"`
	Flag          string `json:"flag"`
}

func buildPayload(sub *submission.Submission, enrichment *enrich.Result) downstreamPayload {
	p := downstreamPayload{
		ExternalID:    sub.ExternalID,
		FormName:      sub.FormName,
		Region:        sub.Region,
		CompanyName:   sub.CompanyName,
		BuilderStatus: string(sub.BuilderStatus),
		Flag:          string(sub.Flag),
	}
	if enrichment != nil {
		if enrichment.CompanyName != "" {
			p.CompanyName = enrichment.CompanyName
		}
		p.Industry = enrichment.Industry
		p.HeadCount = enrichment.HeadCount
		p.CountryCode = enrichment.CountryCode
	}
	return p
}

// HTTPDownstream posts leads to a collaborator endpoint. The same client
// serves provisioning and marketing with different base URLs.
type HTTPDownstream struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDownstream constructs a downstream client.
func NewHTTPDownstream(baseURL string) *HTTPDownstream {
	return &HTTPDownstream{baseURL: baseURL, client: &http.Client{}}
}

func (d *HTTPDownstream) post(ctx context.Context, path string, sub *submission.Submission, enrichment *enrich.Result) error {
	payload, err := json.Marshal(buildPayload(sub, enrichment))
	if err != nil {
		return fmt.Errorf("marshal downstream payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build downstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("downstream call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("downstream %s returned status %d", path, resp.StatusCode)
	}
	return nil
}

func (d *HTTPDownstream) Provision(ctx context.Context, sub *submission.Submission, enrichment *enrich.Result) error {
	return d.post(ctx, "/accounts", sub, enrichment)
}

func (d *HTTPDownstream) Submit(ctx context.Context, sub *submission.Submission, enrichment *enrich.Result) error {
	return d.post(ctx, "/leads", sub, enrichment)
}

// LogDownstream records would-be downstream calls in the log. Development
// stand-in for unconfigured provisioning and marketing endpoints.
type LogDownstream struct {
	Logger *slog.Logger
}

func (d LogDownstream) Provision(ctx context.Context, sub *submission.Submission, enrichment *enrich.Result) error {
	d.Logger.InfoContext(ctx, "provisioning skipped, no endpoint configured",
		"external_id", sub.ExternalID)
	return nil
}

func (d LogDownstream) Submit(ctx context.Context, sub *submission.Submission, enrichment *enrich.Result) error {
	d.Logger.InfoContext(ctx, "marketing submission skipped, no endpoint configured",
		"external_id", sub.ExternalID)
	return nil
}
