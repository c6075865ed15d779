package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "creek_quality"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	RefresherRunning prometheus.Gauge
	Refreshes        *prometheus.CounterVec // labels: outcome={success,error}
	RefreshDuration  prometheus.Histogram
	SnapshotSites    prometheus.Gauge // catalog sites with at least one bucket

	// Ingest metrics.
	RowsIngested  prometheus.Counter
	RowsDropped   *prometheus.CounterVec // labels: reason={unmatched,bad_timestamp}
	RowsAmbiguous prometheus.Counter

	// Routing metrics.
	RouteRequests     *prometheus.CounterVec // labels: outcome={success,no_route,error}
	NearestDuration   prometheus.Histogram
	SummariesProduced prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,directions}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,directions}
	RoutingEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RefresherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresher_running",
			Help:      "1 when the snapshot refresher is active, 0 when shut down.",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Snapshot refresh attempts by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch-ingest-aggregate refresh.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotSites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_sites_with_data",
			Help:      "Catalog sites with at least one weekly bucket in the current snapshot.",
		}),
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Feed rows accepted into a snapshot.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Feed rows dropped during ingest by reason.",
		}, []string{"reason"}),
		RowsAmbiguous: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ambiguous_total",
			Help:      "Feed rows whose site token matched more than one catalog code.",
		}),
		RouteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_requests_total",
			Help:      "Per-site routing requests by outcome.",
		}, []string{"outcome"}),
		NearestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "nearest_duration_seconds",
			Help:      "Duration of a nearest-site resolution.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SummariesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_produced_total",
			Help:      "Site summaries published to the summary topic.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapbox_requests_total",
			Help:      "Mapbox API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mapbox_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		RoutingEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routing_enabled",
			Help:      "1 when Mapbox routing is enabled, 0 when the offline router is used.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RefresherRunning,
		m.Refreshes,
		m.RefreshDuration,
		m.SnapshotSites,
		m.RowsIngested,
		m.RowsDropped,
		m.RowsAmbiguous,
		m.RouteRequests,
		m.NearestDuration,
		m.SummariesProduced,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.RoutingEnabled,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
