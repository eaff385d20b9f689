package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	FetchDuration   prometheus.Histogram
	ImportDuration  prometheus.Histogram
	RecordsImported prometheus.Counter
	RowsSkipped     prometheus.Counter
	StoreRecords    prometheus.Gauge
	Searches        *prometheus.CounterVec
	RefreshChecks   *prometheus.CounterVec
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fzd_fetch_duration_seconds",
			Help:    "Time spent downloading the source file",
			Buckets: prometheus.DefBuckets,
		}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fzd_import_duration_seconds",
			Help:    "Time spent importing the source file into the store",
			Buckets: prometheus.DefBuckets,
		}),
		RecordsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "fzd_records_imported_total",
			Help: "Total number of records written to the store",
		}),
		RowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "fzd_rows_skipped_total",
			Help: "Total number of malformed source rows skipped during import",
		}),
		StoreRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fzd_store_records",
			Help: "Number of records in the store after the last import",
		}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fzd_searches_total",
			Help: "Total number of searches by outcome",
		}, []string{"outcome"}),
		RefreshChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fzd_refresh_checks_total",
			Help: "Total number of update checks by result",
		}, []string{"result"}),
	}
}
