// Package metrics provides Prometheus metrics for the paceline service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace prefixes every metric name. Metrics live under the
// "analysis" subsystem of that namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithLatencyBuckets sets the upper bounds, in milliseconds, of the
// analysis, profile fetch and HTTP latency histograms.
func WithLatencyBuckets(bucketsMs []float64) Option {
	return func(m *Manager) {
		if len(bucketsMs) > 0 {
			m.latencyBuckets = bucketsMs
		}
	}
}

// WithSampleInterval sets how often RunRuntimeSampler reads the runtime.
func WithSampleInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.sampleInterval = interval
		}
	}
}

// WithLabels attaches fixed labels, e.g. a deployment name, to every metric.
func WithLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.constLabels = labels
		}
	}
}

// WithRegistry registers the collectors on reg instead of the default
// Prometheus registerer.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}
