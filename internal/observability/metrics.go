// Package observability holds the Prometheus instruments shared by the
// fetch layer, the data registry and the HTTP API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "groundwatch"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Portal fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: dataset, outcome={success,retry,error}
	FetchDuration *prometheus.HistogramVec // labels: dataset
	RecordsLoaded *prometheus.GaugeVec     // labels: dataset
	RowsSkipped   *prometheus.CounterVec   // labels: dataset
	LastRefresh   *prometheus.GaugeVec     // labels: dataset, unix seconds

	// Catalog metrics.
	CatalogStations prometheus.Gauge
	CatalogExcluded prometheus.Gauge

	// View metrics.
	RecomputeDuration *prometheus.HistogramVec // labels: view
	RecomputeErrors   *prometheus.CounterVec   // labels: view
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.RecordsLoaded,
		m.RowsSkipped,
		m.LastRefresh,
		m.CatalogStations,
		m.CatalogExcluded,
		m.RecomputeDuration,
		m.RecomputeErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_requests_total",
			Help:      "Open-data portal export requests by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_fetch_duration_seconds",
			Help:      "Duration of a complete dataset fetch.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"dataset"}),
		RecordsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Records held in the current snapshot of each dataset.",
		}, []string{"dataset"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_rows_skipped_total",
			Help:      "Export rows dropped because a timestamp or value could not be parsed.",
		}, []string{"dataset"}),
		LastRefresh: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful fetch of each dataset.",
		}, []string{"dataset"}),
		CatalogStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_stations",
			Help:      "Stations in the current station catalog.",
		}),
		CatalogExcluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_excluded_stations",
			Help:      "Stations left out of the catalog because of invalid coordinates.",
		}),
		RecomputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_recompute_duration_seconds",
			Help:      "Time spent filtering and aggregating for one view.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"view"}),
		RecomputeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_recompute_errors_total",
			Help:      "View computations rejected because of invalid parameters.",
		}, []string{"view"}),
	}
}
