package research

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nichefinder_research_source_failures_total",
	Help: "Research source lookups that degraded to an empty result set.",
}, []string{"source"})
