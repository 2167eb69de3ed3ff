package provision

import "github.com/prometheus/client_golang/prometheus"

var (
	downloadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "visiond",
			Subsystem: "provision",
			Name:      "download_bytes_total",
			Help:      "Total bytes fetched from asset origins",
		},
	)

	filesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visiond",
			Subsystem: "provision",
			Name:      "files_total",
			Help:      "Assets handled per outcome (downloaded, skipped)",
		},
		[]string{"outcome"},
	)

	probeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "visiond",
			Subsystem: "provision",
			Name:      "probe_failures_total",
			Help:      "Size probes (HEAD) that failed; non-fatal",
		},
	)
)

func init() {
	prometheus.MustRegister(downloadBytesTotal, filesTotal, probeFailuresTotal)
}
