package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricDenials = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leadgate_rate_limit_denials_total",
	Help: "Rate limit denials by dimension",
}, []string{"dimension"})
