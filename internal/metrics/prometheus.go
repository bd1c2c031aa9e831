package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics
var (
	ingestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crl_ingest_total",
			Help: "CRL ingestion attempts by outcome (accepted or rejection code)",
		},
		[]string{"outcome"},
	)
	archivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crl_archived_total",
			Help: "Superseded CRLs snapshotted to the archive",
		},
	)
	storedObjects = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stored_objects",
			Help: "Number of stored artifacts per storage prefix",
		},
		[]string{"prefix"},
	)
)

// ObserveIngest records one ingestion attempt.
func ObserveIngest(outcome string) {
	ingestTotal.WithLabelValues(outcome).Inc()
}

// ObserveArchive records one archive snapshot.
func ObserveArchive() {
	archivedTotal.Inc()
}

// WireUpHTTPMetrics exposes the Prometheus scrape endpoint.
func WireUpHTTPMetrics() {
	http.Handle("/metrics", promhttp.Handler())
}
