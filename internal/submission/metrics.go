package submission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricSteps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leadgate_steps_accepted_total",
	Help: "Accepted gateway steps by step number",
}, []string{"step"})
