package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the ingestion
// pipeline. Family labels are "station", "max_surge" and "wind".
type Metrics struct {
	RunsStarted   *prometheus.CounterVec // labels: family
	RunsSucceeded *prometheus.CounterVec // labels: family
	RunsFailed    *prometheus.CounterVec // labels: family
	RunsNoSource  *prometheus.CounterVec // labels: family

	FilesStaged      *prometheus.CounterVec // labels: family
	ArtifactsWritten *prometheus.CounterVec // labels: type
	RowsInserted     prometheus.Counter
	ConversionErrors prometheus.Counter

	RunDuration *prometheus.HistogramVec // labels: family
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surge_etl",
			Name:      "runs_started_total",
			Help:      "Pipeline runs started per product family.",
		}, []string{"family"}),
		RunsSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surge_etl",
			Name:      "runs_succeeded_total",
			Help:      "Pipeline runs that completed successfully.",
		}, []string{"family"}),
		RunsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surge_etl",
			Name:      "runs_failed_total",
			Help:      "Pipeline runs aborted by a stage error.",
		}, []string{"family"}),
		RunsNoSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surge_etl",
			Name:      "runs_no_source_total",
			Help:      "Runs that found no source file published yet.",
		}, []string{"family"}),
		FilesStaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surge_etl",
			Name:      "files_staged_total",
			Help:      "Source files copied or retrieved into managed storage.",
		}, []string{"family"}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surge_etl",
			Name:      "artifacts_written_total",
			Help:      "Derived coverage artifacts written, by coverage type.",
		}, []string{"type"}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surge_etl",
			Name:      "station_rows_inserted_total",
			Help:      "Station surge rows written to year shards.",
		}),
		ConversionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surge_etl",
			Name:      "conversion_errors_total",
			Help:      "Raster conversion or export failures (non-fatal).",
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "surge_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete family pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"family"}),
	}
}

// NewMetrics creates and registers the pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsStarted,
		m.RunsSucceeded,
		m.RunsFailed,
		m.RunsNoSource,
		m.FilesStaged,
		m.ArtifactsWritten,
		m.RowsInserted,
		m.ConversionErrors,
		m.RunDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
