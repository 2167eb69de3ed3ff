package session

import "github.com/prometheus/client_golang/prometheus"

var (
	tokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "visiond",
			Subsystem: "generation",
			Name:      "tokens_total",
			Help:      "Text fragments streamed to consumers",
		},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visiond",
			Subsystem: "generation",
			Name:      "runs_total",
			Help:      "Generation runs per terminal outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(tokensTotal, runsTotal)
}
