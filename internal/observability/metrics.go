package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	InitialLoads   *prometheus.CounterVec // labels: outcome={success,error}
	LineSelections prometheus.Counter
	StaleDiscards  prometheus.Counter
	DashboardReady prometheus.Gauge

	// Backend fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: endpoint
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		InitialLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel_dash",
			Name:      "initial_loads_total",
			Help:      "Initial load cycles (health, weather, alerts) by outcome.",
		}, []string{"outcome"}),
		LineSelections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "travel_dash",
			Name:      "line_selections_total",
			Help:      "Total rail line selection changes.",
		}),
		StaleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "travel_dash",
			Name:      "stale_results_discarded_total",
			Help:      "Crowd results discarded because the selection changed mid-flight.",
		}),
		DashboardReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "travel_dash",
			Name:      "dashboard_ready",
			Help:      "1 after the first initial load has succeeded, 0 before.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel_dash",
			Name:      "fetch_requests_total",
			Help:      "Backend fetches by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "travel_dash",
			Name:      "fetch_duration_seconds",
			Help:      "Backend request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"endpoint"}),
	}

	prometheus.MustRegister(
		m.InitialLoads,
		m.LineSelections,
		m.StaleDiscards,
		m.DashboardReady,
		m.FetchRequests,
		m.FetchDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		InitialLoads:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "travel_dash", Name: "initial_loads_total"}, []string{"outcome"}),
		LineSelections: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "travel_dash", Name: "line_selections_total"}),
		StaleDiscards:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "travel_dash", Name: "stale_results_discarded_total"}),
		DashboardReady: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "travel_dash", Name: "dashboard_ready"}),
		FetchRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "travel_dash", Name: "fetch_requests_total"}, []string{"endpoint", "outcome"}),
		FetchDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "travel_dash", Name: "fetch_duration_seconds"}, []string{"endpoint"}),
	}
}
