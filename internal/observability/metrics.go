package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "restaurant_grades"

// Metrics holds the Prometheus counters, histograms, and gauges for the grading pipeline.
type Metrics struct {
	RowsFetched     prometheus.Counter
	RowsDropped     *prometheus.CounterVec // labels: reason={sentinel_date,missing_permit,invalid}
	RowsQuarantined prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Grading metrics.
	EstablishmentsGraded *prometheus.CounterVec // labels: grade
	InferenceRules       *prometheus.CounterVec // labels: rule
	ClosureOutcomes      *prometheus.CounterVec // labels: outcome
	Inconsistencies      prometheus.Gauge

	// Run metrics.
	RunDuration       prometheus.Histogram
	Runs              *prometheus.CounterVec // labels: outcome={success,error}
	LastSuccess       prometheus.Gauge
	SinkWriteDuration *prometheus.HistogramVec // labels: sink
	InspectionsPages  prometheus.Counter
	SnapshotRows      prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method=forward, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method=forward, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method=forward
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_fetched_total",
			Help:      "Total inspection rows read from the open-data endpoint.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Inspection rows rejected at ingestion, by reason.",
		}, []string{"reason"}),
		RowsQuarantined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_quarantined_total",
			Help:      "Inspection rows excluded from grading for an unknown inspection type.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
		EstablishmentsGraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "establishments_graded_total",
			Help:      "Establishments graded, by display grade.",
		}, []string{"grade"}),
		InferenceRules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_rules_total",
			Help:      "Grading rule that produced each establishment's grade.",
		}, []string{"rule"}),
		ClosureOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "closure_outcomes_total",
			Help:      "Closure chain resolutions, by outcome.",
		}, []string{"outcome"}),
		Inconsistencies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inconsistencies",
			Help:      "Recorded grades contradicting the grading rules in the last run.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-grade-publish run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs, by outcome.",
		}, []string{"outcome"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		SinkWriteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_write_duration_seconds",
			Help:      "Time spent writing a report to each sink.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"sink"}),
		InspectionsPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inspections_pages_total",
			Help:      "OData pages fetched from the open-data endpoint.",
		}),
		SnapshotRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_restaurants",
			Help:      "Restaurants loaded from the previous snapshot.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RowsFetched,
		m.RowsDropped,
		m.RowsQuarantined,
		m.PipelineRunning,
		m.EstablishmentsGraded,
		m.InferenceRules,
		m.ClosureOutcomes,
		m.Inconsistencies,
		m.RunDuration,
		m.Runs,
		m.LastSuccess,
		m.SinkWriteDuration,
		m.InspectionsPages,
		m.SnapshotRows,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsFetched:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rows_fetched_total"}),
		RowsDropped:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "rows_dropped_total"}, []string{"reason"}),
		RowsQuarantined:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rows_quarantined_total"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		EstablishmentsGraded: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "establishments_graded_total"}, []string{"grade"}),
		InferenceRules:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "inference_rules_total"}, []string{"rule"}),
		ClosureOutcomes:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "closure_outcomes_total"}, []string{"outcome"}),
		Inconsistencies:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "inconsistencies"}),
		RunDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "run_duration_seconds"}),
		Runs:                 prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "runs_total"}, []string{"outcome"}),
		LastSuccess:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "last_success_timestamp_seconds"}),
		SinkWriteDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "sink_write_duration_seconds"}, []string{"sink"}),
		InspectionsPages:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "inspections_pages_total"}),
		SnapshotRows:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "snapshot_restaurants"}),
		GeocodeRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_requests_total"}, []string{"method", "outcome"}),
		GeocodeCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_cache_total"}, []string{"method", "result"}),
		GeocodeAPIDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "geocode_api_duration_seconds"}, []string{"method"}),
		GeocodeEnabled:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "geocode_enabled"}),
	}
}
