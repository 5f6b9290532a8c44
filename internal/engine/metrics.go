package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nichefinder_searches_total",
		Help: "Search outcomes by kind (cache_hit, synthesized, no_credits, error).",
	}, []string{"outcome"})

	creditsDeducted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nichefinder_credits_deducted_total",
		Help: "Search credits consumed across all users.",
	})

	synthesisFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nichefinder_synthesis_failures_total",
		Help: "Analyses the language model failed to produce or that failed validation.",
	})
)
