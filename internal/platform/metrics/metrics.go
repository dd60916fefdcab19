package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RefreshMetrics counts refresh-cycle outcomes for the /metrics endpoint.
type RefreshMetrics struct {
	CyclesTotal         *prometheus.CounterVec
	SourceFailuresTotal *prometheus.CounterVec
	RatesMergedTotal    prometheus.Counter
}

// NewRefreshMetrics registers the refresh metrics on the given registerer.
func NewRefreshMetrics(reg prometheus.Registerer) *RefreshMetrics {
	factory := promauto.With(reg)
	return &RefreshMetrics{
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_refresh_cycles_total",
				Help: "Refresh cycles by outcome",
			},
			[]string{"result"},
		),
		SourceFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_source_failures_total",
				Help: "Failed source fetches by source name",
			},
			[]string{"source"},
		),
		RatesMergedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rates_merged_total",
				Help: "Total rate entries merged into committed snapshots",
			},
		),
	}
}
