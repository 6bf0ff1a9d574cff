package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline holds the catalog pipeline collectors. A nil *Pipeline is valid
// and records nothing, so tests and tools can skip metrics entirely.
type Pipeline struct {
	duration       *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	fetched        *prometheus.CounterVec
	collapsed      *prometheus.CounterVec
	imageFallbacks prometheus.Counter
	superseded     prometheus.Counter
}

func NewPipeline(reg prometheus.Registerer) *Pipeline {
	m := &Pipeline{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "petrocore",
			Subsystem: "catalog",
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent running the catalog pipeline for one kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petrocore",
			Subsystem: "catalog",
			Name:      "pipeline_errors_total",
			Help:      "Pipeline failures by error class.",
		}, []string{"kind", "class"}),
		fetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petrocore",
			Subsystem: "catalog",
			Name:      "records_fetched_total",
			Help:      "Raw records returned by the store.",
		}, []string{"kind"}),
		collapsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petrocore",
			Subsystem: "catalog",
			Name:      "duplicates_collapsed_total",
			Help:      "Records dropped by de-duplication.",
		}, []string{"kind"}),
		imageFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "petrocore",
			Subsystem: "catalog",
			Name:      "image_lookup_failures_total",
			Help:      "Gallery lookups that failed and fell back to another image.",
		}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "petrocore",
			Subsystem: "catalog",
			Name:      "superseded_results_total",
			Help:      "Search results discarded because a newer query was issued.",
		}),
	}
	reg.MustRegister(m.duration, m.errors, m.fetched, m.collapsed, m.imageFallbacks, m.superseded)
	return m
}

func (m *Pipeline) ObserveRun(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Pipeline) Error(kind, class string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind, class).Inc()
}

func (m *Pipeline) Fetched(kind string, n int) {
	if m == nil {
		return
	}
	m.fetched.WithLabelValues(kind).Add(float64(n))
}

func (m *Pipeline) Collapsed(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.collapsed.WithLabelValues(kind).Add(float64(n))
}

func (m *Pipeline) ImageFallback() {
	if m == nil {
		return
	}
	m.imageFallbacks.Inc()
}

func (m *Pipeline) Superseded() {
	if m == nil {
		return
	}
	m.superseded.Inc()
}
