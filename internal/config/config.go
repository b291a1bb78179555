// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ScoreTablePath points at the WA score CSV. Empty disables scoring.
	ScoreTablePath string `koanf:"score_table_path"`
	// StrictScoreTable rejects tables whose points rise with time.
	StrictScoreTable bool `koanf:"strict_score_table"`

	// MaxSelected caps how many scored events feed a prediction.
	MaxSelected int `koanf:"max_selected"`
	// SessionLimit caps open sessions; 0 means unlimited.
	SessionLimit int `koanf:"session_limit"`
	// MaxObservations caps observations per session; 0 means unlimited.
	MaxObservations int `koanf:"max_observations"`
	// DedupeSize bounds the per-session duplicate filter. It never drops
	// below max_observations and is unbounded when max_observations is 0.
	DedupeSize int `koanf:"dedupe_size"`

	// ProfileTimeoutMS bounds a profile page fetch.
	ProfileTimeoutMS int `koanf:"profile_timeout_ms"`

	// MetricsNamespace prefixes every Prometheus metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsSampleMS is the runtime gauge sampling period.
	MetricsSampleMS int `koanf:"metrics_sample_ms"`
	// MetricsLatencyBucketsMS overrides the latency histogram bounds.
	MetricsLatencyBucketsMS []float64 `koanf:"metrics_latency_buckets_ms"`
	// MetricsLabels are constant labels added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		MaxSelected:      3,
		SessionLimit:     1_000,
		MaxObservations:  200,
		DedupeSize:       1_024,
		ProfileTimeoutMS: 10_000,
		MetricsNamespace: "paceline",
		MetricsSampleMS:  10_000,
	}
}

// ProfileTimeout returns ProfileTimeoutMS as a duration.
func (c *Config) ProfileTimeout() time.Duration {
	return time.Duration(c.ProfileTimeoutMS) * time.Millisecond
}

// MetricsSampleInterval returns MetricsSampleMS as a duration.
func (c *Config) MetricsSampleInterval() time.Duration {
	return time.Duration(c.MetricsSampleMS) * time.Millisecond
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.MaxSelected < 1:
		return fmt.Errorf("max_selected must be >= 1, got %d: %w", c.MaxSelected, ErrInvalidConfig)
	case c.SessionLimit < 0:
		return fmt.Errorf("session_limit must be >= 0, got %d: %w", c.SessionLimit, ErrInvalidConfig)
	case c.MaxObservations < 0:
		return fmt.Errorf("max_observations must be >= 0, got %d: %w", c.MaxObservations, ErrInvalidConfig)
	case c.ProfileTimeoutMS <= 0:
		return fmt.Errorf("profile_timeout_ms must be > 0, got %d: %w", c.ProfileTimeoutMS, ErrInvalidConfig)
	case c.MetricsSampleMS <= 0:
		return fmt.Errorf("metrics_sample_ms must be > 0, got %d: %w", c.MetricsSampleMS, ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsLatencyBucketsMS); i++ {
		if c.MetricsLatencyBucketsMS[i] <= c.MetricsLatencyBucketsMS[i-1] {
			return fmt.Errorf("metrics_latency_buckets_ms must increase, got %v: %w", c.MetricsLatencyBucketsMS, ErrInvalidConfig)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q: %w", c.LogFormat, ErrInvalidConfig)
	}
	return nil
}
