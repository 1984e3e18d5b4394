package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mannyrivera2010/go-quadingest/pkg/quadstore"
)

// Metrics records ingestion counters on its own registry. A batch job has no
// endpoint to scrape, so the registry is written out with WriteTextfile for a
// node_exporter textfile collector.
type Metrics struct {
	Registry *prometheus.Registry

	files       *prometheus.CounterVec
	entries     *prometheus.CounterVec
	inserted    prometheus.Counter
	duration    prometheus.Histogram
	lastVersion prometheus.Gauge
	failures    *prometheus.CounterVec
}

// NewMetrics registers the ingestion metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		files: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quadingest",
			Name:      "files_total",
			Help:      "Change files parsed, by polarity.",
		}, []string{"polarity"}),
		entries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quadingest",
			Name:      "entries_parsed_total",
			Help:      "Delta entries parsed, by polarity.",
		}, []string{"polarity"}),
		inserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "quadingest",
			Name:      "entries_inserted_total",
			Help:      "Delta entries the store reported as inserted.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quadingest",
			Name:      "ingest_duration_seconds",
			Help:      "Time from store open to append completion.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		lastVersion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "quadingest",
			Name:      "last_version",
			Help:      "Last version successfully ingested.",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quadingest",
			Name:      "failures_total",
			Help:      "Failed ingests, by error kind.",
		}, []string{"kind"}),
	}
}

// WriteTextfile writes the registry in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// The methods below accept a nil receiver so callers need not check.

func (m *Metrics) fileParsed(polarity quadstore.ChangeType, entries int) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(polarity.String()).Inc()
	m.entries.WithLabelValues(polarity.String()).Add(float64(entries))
}

func (m *Metrics) ingested(rep *Report) {
	if m == nil {
		return
	}
	m.inserted.Add(float64(rep.Inserted))
	m.duration.Observe(rep.Elapsed.Seconds())
	m.lastVersion.Set(float64(rep.Version))
}

func (m *Metrics) failed(err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(errorKind(err)).Inc()
}

func errorKind(err error) string {
	switch ExitCode(err) {
	case ExitArgument:
		return "argument"
	case ExitDirectoryAccess:
		return "directory_access"
	case ExitParse:
		return "parse"
	case ExitStoreOpen:
		return "store_open"
	case ExitStoreAppend:
		return "store_append"
	default:
		return "other"
	}
}
