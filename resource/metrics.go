// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results recorded by the lookups counter.
const (
	LookupHit     = "hit"
	LookupCreated = "created"
	LookupAbsent  = "absent"
	LookupError   = "error"
)

// MetricsConfig configures the collectors of a Manager.
type MetricsConfig struct {
	// Namespace is the Prometheus namespace. Default: "koru"
	Namespace string

	// Subsystem is the Prometheus subsystem. Default: "resource"
	Subsystem string

	// ReconcileBuckets are the histogram buckets for one reconcile call, in seconds.
	ReconcileBuckets []float64

	// Registry receives the collectors. Nil leaves them unregistered.
	Registry prometheus.Registerer
}

// DefaultMetricsConfig returns a configuration that does not register
// anything globally.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace:        "koru",
		Subsystem:        "resource",
		ReconcileBuckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}
}

// Metrics holds the collectors updated by a Manager.
type Metrics struct {
	Lookups     *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Live        *prometheus.GaugeVec
	Reconcile   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with
// cfg.Registry when it is set.
func NewMetrics(cfg *MetricsConfig) *Metrics {
	if cfg == nil {
		cfg = DefaultMetricsConfig()
	}
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "lookups_total",
			Help:      "Resource lookups by class and result.",
		}, []string{"class", "result"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "transitions_total",
			Help:      "Lifecycle transitions by operation and result.",
		}, []string{"op", "result"}),
		Live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "live",
			Help:      "Resources currently tracked, by section.",
		}, []string{"section"}),
		Reconcile: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of bulk state reconciliation calls.",
			Buckets:   cfg.ReconcileBuckets,
		}),
	}
	if cfg.Registry != nil {
		cfg.Registry.MustRegister(m.Lookups, m.Transitions, m.Live, m.Reconcile)
	}
	return m
}

func (m *Metrics) lookup(class Class, result string) {
	m.Lookups.WithLabelValues(string(class), result).Inc()
}

func (m *Metrics) transition(op Op, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.Transitions.WithLabelValues(string(op), result).Inc()
}

func (m *Metrics) live(s *Section) {
	m.Live.WithLabelValues(s.Name).Set(float64(s.Len()))
}
