package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_transfers_total",
			Help: "Number of transfers between envelopes by result",
		},
		[]string{"result"},
	)

	rolloversTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_rollovers_total",
			Help: "Number of processed envelope rollovers by rollover mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	bulkAllocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_bulk_allocations_total",
			Help: "Number of bulk allocations by strategy and result",
		},
		[]string{"strategy", "result"},
	)
)

// Collectors returns the metrics of the engine for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{transfersTotal, rolloversTotal, bulkAllocationsTotal}
}

// resultLabel returns the metric label for the outcome of an operation.
func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
