package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Waterfall tries providers in fixed priority order. Each call gets an
// independent timeout; failure is non-fatal and control falls to the next
// provider. The first provider returning usable data wins.
type Waterfall struct {
	providers []Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures the Waterfall.
type Option func(*Waterfall)

// WithLogger sets a logger for provider failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Waterfall) {
		w.logger = logger
	}
}

// NewWaterfall constructs a waterfall over the given providers. Order is
// priority order.
func NewWaterfall(providers []Provider, timeout time.Duration, opts ...Option) (*Waterfall, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("provider timeout must be positive")
	}

	w := &Waterfall{providers: providers, timeout: timeout}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Enrich runs the waterfall. It returns ErrNoMatch when every provider
// either failed or had no usable data; operational failures never propagate
// as errors beyond that.
func (w *Waterfall) Enrich(ctx context.Context, identity Identity) (*Result, error) {
	for _, provider := range w.providers {
		result, err := w.lookupOne(ctx, provider, identity)
		if err != nil {
			w.logFailure(ctx, provider, err)
			metricLookups.WithLabelValues(provider.Name(), "error").Inc()
			continue
		}
		if !result.usable() {
			metricLookups.WithLabelValues(provider.Name(), "miss").Inc()
			continue
		}
		metricLookups.WithLabelValues(provider.Name(), "hit").Inc()
		return result, nil
	}
	return nil, ErrNoMatch
}

func (w *Waterfall) lookupOne(ctx context.Context, provider Provider, identity Identity) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	result, err := provider.Lookup(ctx, identity)
	metricLatency.WithLabelValues(provider.Name()).Observe(time.Since(start).Seconds())
	return result, err
}

func (w *Waterfall) logFailure(ctx context.Context, provider Provider, err error) {
	if w.logger != nil {
		w.logger.WarnContext(ctx, "enrichment provider failed",
			"provider", provider.Name(),
			"error", err,
		)
	}
}

// Merge combines results by priority: explicit form-supplied fields first,
// then earlier results fill fields later ones would, and later results only
// fill fields still missing. The form result may be nil.
func Merge(form *Result, results ...*Result) *Result {
	merged := &Result{}
	fill(merged, form)
	for _, r := range results {
		fill(merged, r)
	}
	return merged
}

func fill(dst, src *Result) {
	if src == nil {
		return
	}
	if dst.CompanyName == "" {
		dst.CompanyName = src.CompanyName
	}
	if dst.Domain == "" {
		dst.Domain = src.Domain
	}
	if dst.Industry == "" {
		dst.Industry = src.Industry
	}
	if dst.HeadCount == "" {
		dst.HeadCount = src.HeadCount
	}
	if dst.CountryCode == "" {
		dst.CountryCode = src.CountryCode
	}
	if dst.Source == "" {
		dst.Source = src.Source
	}
	if dst.RetrievedAt.IsZero() {
		dst.RetrievedAt = src.RetrievedAt
	}
}
