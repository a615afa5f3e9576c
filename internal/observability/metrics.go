package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_trends"

// Metrics holds the Prometheus counters, histograms, and gauges for dataset
// loading and chart serving.
type Metrics struct {
	// Load metrics.
	Loads         *prometheus.CounterVec // labels: outcome={success,error}
	LoadDuration  prometheus.Histogram
	DataLoaded    prometheus.Gauge
	RegionsLoaded prometheus.Gauge
	LoadAnomalies *prometheus.GaugeVec   // labels: kind={unresolved_case_id,lookup_miss,placeholder,duplicate,skipped_row,split_entry}
	FetchAttempts *prometheus.CounterVec // labels: file, outcome={success,error}

	// Chart metrics.
	ChartBuilds prometheus.Counter
	ChartCache  *prometheus.CounterVec // labels: result={hit,miss}

	// Summary publishing.
	SummariesPublished prometheus.Counter
	SummaryErrors      prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Loads,
		m.LoadDuration,
		m.DataLoaded,
		m.RegionsLoaded,
		m.LoadAnomalies,
		m.FetchAttempts,
		m.ChartBuilds,
		m.ChartCache,
		m.SummariesPublished,
		m.SummaryErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset load attempts by outcome.",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of a complete fetch, decode and install cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DataLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_loaded",
			Help:      "1 once a dataset has been installed, 0 before.",
		}),
		RegionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_regions",
			Help:      "Number of regions in the current dataset.",
		}),
		LoadAnomalies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_anomalies",
			Help:      "Data inconsistencies tolerated while building the current dataset.",
		}, []string{"kind"}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_attempts_total",
			Help:      "Source file fetch attempts by file and outcome.",
		}, []string{"file", "outcome"}),
		ChartBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_builds_total",
			Help:      "Charts assembled from the region tree.",
		}),
		ChartCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_cache_total",
			Help:      "Chart cache lookups by result.",
		}, []string{"result"}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Region summaries written to the summary topic.",
		}),
		SummaryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_publish_errors_total",
			Help:      "Failed summary publish batches.",
		}),
	}
}
