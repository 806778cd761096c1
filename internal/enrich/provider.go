// Package enrich performs waterfall company enrichment: ordered external
// lookups with independent timeouts, stopping at the first provider that
// returns usable data.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Identity carries the lookup keys available to providers. The raw email is
// never passed through; providers match on domain and declared company name.
type Identity struct {
	Domain      string
	CompanyName string
}

// Result is the merged view of what a provider knows about a company.
// Empty fields mean the provider had no data for them.
type Result struct {
	CompanyName string
	Domain      string
	Industry    string
	HeadCount   string
	CountryCode string

	Source      string
	RetrievedAt time.Time
}

// usable reports whether the result carries enough data to stop the
// waterfall. A bare echo of the input does not count.
func (r *Result) usable() bool {
	if r == nil {
		return false
	}
	return r.Industry != "" || r.HeadCount != "" || r.CountryCode != ""
}

// Provider is the single lookup contract every enrichment source implements.
// Lookup returns sentinel.ErrNotFound (wrapped or bare) when the provider
// has no record; any other error is an operational failure.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, identity Identity) (*Result, error)
}

// HTTPProvider queries a JSON enrichment API. Both configured providers use
// this client with different endpoints and credentials.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider constructs a provider against the given API base URL.
func NewHTTPProvider(name, baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

type providerResponse struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Industry    string `json:"industry"`
	HeadCount   string `json:"head_count"`
	CountryCode string `json:"country_code"`
}

func (p *HTTPProvider) Lookup(ctx context.Context, identity Identity) (*Result, error) {
	endpoint := fmt.Sprintf("%s/companies/lookup?domain=%s&name=%s",
		p.baseURL, url.QueryEscape(identity.Domain), url.QueryEscape(identity.CompanyName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("provider %s: build request: %w", p.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoMatch
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("provider %s: unexpected status %d", p.name, resp.StatusCode)
	}

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("provider %s: decode response: %w", p.name, err)
	}

	return &Result{
		CompanyName: body.Name,
		Domain:      body.Domain,
		Industry:    body.Industry,
		HeadCount:   body.HeadCount,
		CountryCode: body.CountryCode,
		Source:      p.name,
		RetrievedAt: time.Now(),
	}, nil
}

// ErrNoMatch indicates a provider responded but holds no record for the
// identity. Distinct from operational failures so callers can tell "looked
// and found nothing" from "could not look".
var ErrNoMatch = errors.New("no enrichment match")

// NoopProvider never matches. It stands in when no external provider is
// configured so the waterfall still runs and submissions route to review.
type NoopProvider struct{}

func (NoopProvider) Name() string { return "none" }

func (NoopProvider) Lookup(context.Context, Identity) (*Result, error) {
	return nil, ErrNoMatch
}
