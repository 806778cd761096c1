package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leadgate_events_processed_total",
	Help: "Processed submission events by flag",
}, []string{"flag"})
