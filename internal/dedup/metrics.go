package dedup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricClaims = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leadgate_dedup_claims_total",
	Help: "Claim attempts by outcome (acquired or duplicate)",
}, []string{"outcome"})
