// Package metrics provides Prometheus metrics for match analyses.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for analysed matches.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeConflict  = "conflict"
	OutcomeAborted   = "aborted"
	OutcomeError     = "error"
)

// Manager owns the analysis collectors. It is safe for concurrent use.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	matches       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	mistakes      *prometheus.CounterVec
	rulesFired    *prometheus.CounterVec
	events        prometheus.Counter
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithHistogramBuckets sets stage duration buckets in seconds.
func WithHistogramBuckets(b []float64) Option {
	return func(m *Manager) { m.histogramBuckets = b }
}

// WithRegistry uses reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) { m.registry = reg }
}

// New creates a Manager and registers its collectors.
func New(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cscoach",
		histogramBuckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.matches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "matches_analysed_total",
		Help:      "Match analyses by outcome.",
	}, []string{"outcome"})
	m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage.",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})
	m.mistakes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "mistakes_detected_total",
		Help:      "Detected mistakes by type.",
	}, []string{"type"})
	m.rulesFired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scoring_rules_fired_total",
		Help:      "Scoring rule applications by rule name.",
	}, []string{"rule"})
	m.events = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_processed_total",
		Help:      "Match events accepted by the normalizer.",
	})

	m.registry.MustRegister(m.matches, m.stageDuration, m.mistakes, m.rulesFired, m.events)
	return m
}

// Registry exposes the underlying registry.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// RecordMatch counts one finished analysis.
func (m *Manager) RecordMatch(outcome string) { m.matches.WithLabelValues(outcome).Inc() }

// ObserveStage records how long a pipeline stage took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordMistake counts one detected mistake.
func (m *Manager) RecordMistake(kind string) { m.mistakes.WithLabelValues(kind).Inc() }

// RecordRule counts one scoring rule application.
func (m *Manager) RecordRule(rule string) { m.rulesFired.WithLabelValues(rule).Inc() }

// AddEvents counts accepted events.
func (m *Manager) AddEvents(n int) { m.events.Add(float64(n)) }

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
