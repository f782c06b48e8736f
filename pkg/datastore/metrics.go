package datastore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queriesTotal counts physical query attempts per backend and outcome (ok, retryable, fatal).
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firvault_datastore_queries_total",
			Help: "Total number of physical query attempts per backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	// failoversTotal counts logical calls re-run on the fallback pool.
	failoversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firvault_datastore_failovers_total",
			Help: "Total number of queries transparently re-run on the fallback pool",
		},
	)
)
