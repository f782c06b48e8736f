package fir

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// allocationsTotal counts allocation attempts by outcome (ok, invalid_scope, duplicate, error).
var allocationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "firvault_fir_allocations_total",
		Help: "Total number of FIR number allocations by outcome",
	},
	[]string{"outcome"},
)
