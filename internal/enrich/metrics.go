package enrich

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadgate_enrichment_lookups_total",
		Help: "Enrichment provider lookups by provider and outcome",
	}, []string{"provider", "outcome"})

	metricLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadgate_enrichment_lookup_seconds",
		Help:    "Enrichment provider lookup latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"provider"})
)
