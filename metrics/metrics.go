// Package metrics records Prometheus metrics for ingestion, matching,
// substitution and generation. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tsawler/slidesmith/report"
)

const namespace = "slidesmith"

// Metrics holds the collectors.
type Metrics struct {
	registry *prometheus.Registry

	slidesIngested    *prometheus.CounterVec
	warnings          *prometheus.CounterVec
	ingestDuration    prometheus.Histogram
	sections          *prometheus.CounterVec
	similarity        prometheus.Histogram
	substitutions     *prometheus.CounterVec
	generationAttempt *prometheus.CounterVec
	generationLatency prometheus.Histogram
	decksAssembled    *prometheus.CounterVec
}

// New registers the collectors on registry, creating one when nil.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{registry: registry}

	m.slidesIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "slides_total",
		Help:      "Slides extracted and stored, by category.",
	}, []string{"category"})
	m.warnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "warnings_total",
		Help:      "Non-fatal warnings reported, by kind.",
	}, []string{"kind"})
	m.ingestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "duration_seconds",
		Help:      "Time to ingest one deck.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})
	m.sections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "match",
		Name:      "sections_total",
		Help:      "Outline sections processed by the matcher, by result.",
	}, []string{"result"})
	m.similarity = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "match",
		Name:      "similarity",
		Help:      "Cosine similarity of assigned slides.",
		Buckets:   prometheus.LinearBuckets(0.5, 0.05, 11),
	})
	m.substitutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "substitute",
		Name:      "paragraphs_total",
		Help:      "Paragraphs rewritten by the substitution engine.",
	}, []string{"mode"})
	m.generationAttempt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generate",
		Name:      "requests_total",
		Help:      "Generation requests, by step and status.",
	}, []string{"step", "status"})
	m.generationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "generate",
		Name:      "latency_seconds",
		Help:      "Latency of generation requests.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
	m.decksAssembled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assemble",
		Name:      "decks_total",
		Help:      "Decks assembled, by mode.",
	}, []string{"mode"})

	registry.MustRegister(
		m.slidesIngested, m.warnings, m.ingestDuration,
		m.sections, m.similarity, m.substitutions,
		m.generationAttempt, m.generationLatency, m.decksAssembled,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteFile writes the current values to filename in the text format.
func (m *Metrics) WriteFile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}

// ObserveIngest records one ingested deck.
func (m *Metrics) ObserveIngest(categories []string, elapsed time.Duration) {
	if m == nil {
		return
	}
	for _, c := range categories {
		m.slidesIngested.WithLabelValues(c).Inc()
	}
	m.ingestDuration.Observe(elapsed.Seconds())
}

// ObserveWarnings counts warnings by kind.
func (m *Metrics) ObserveWarnings(warnings []report.Warning) {
	if m == nil {
		return
	}
	for _, w := range warnings {
		m.warnings.WithLabelValues(w.Kind.String()).Inc()
	}
}

// ObserveMatch records the matcher outcome.
func (m *Metrics) ObserveMatch(similarities []float64, unmatched int) {
	if m == nil {
		return
	}
	m.sections.WithLabelValues("matched").Add(float64(len(similarities)))
	m.sections.WithLabelValues("unmatched").Add(float64(unmatched))
	for _, s := range similarities {
		m.similarity.Observe(s)
	}
}

// ObserveSubstitutions counts rewritten paragraphs for an assembly mode.
func (m *Metrics) ObserveSubstitutions(mode string, paragraphs int) {
	if m == nil {
		return
	}
	m.substitutions.WithLabelValues(mode).Add(float64(paragraphs))
}

// ObserveGeneration records one generation step.
func (m *Metrics) ObserveGeneration(step string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.generationAttempt.WithLabelValues(step, status).Inc()
	m.generationLatency.Observe(elapsed.Seconds())
}

// ObserveAssembly counts an assembled deck.
func (m *Metrics) ObserveAssembly(mode string) {
	if m == nil {
		return
	}
	m.decksAssembled.WithLabelValues(mode).Inc()
}
