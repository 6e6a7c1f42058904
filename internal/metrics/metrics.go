// Package metrics exposes Prometheus collectors for installs, version
// checks and imports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "addondeps").
	Namespace string

	// Buckets are the histogram buckets for install duration.
	// Default: prometheus.ExponentialBuckets(0.5, 2, 10)
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: a fresh prometheus.NewRegistry()
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithBuckets sets the install duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	installsTotal   *prometheus.CounterVec
	installDuration prometheus.Histogram
	checksTotal     *prometheus.CounterVec
	importsTotal    *prometheus.CounterVec
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "addondeps",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(cfg.Registry)
	return &Metrics{
		installsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "installs_total",
			Help:      "Package requirements processed, by result (installed, skipped, failed).",
		}, []string{"result"}),
		installDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "install_duration_seconds",
			Help:      "Time spent running the package manager for one package.",
			Buckets:   cfg.Buckets,
		}),
		checksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "version_checks_total",
			Help:      "Version checks, by status (absent, conflicting, unsatisfied, satisfied).",
		}, []string{"status"}),
		importsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "imports_total",
			Help:      "Module imports, by result (loaded, cached, failed).",
		}, []string{"result"}),
	}
}

// ObserveInstall records one processed requirement.
func (m *Metrics) ObserveInstall(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.installsTotal.WithLabelValues(result).Inc()
	if result != "skipped" {
		m.installDuration.Observe(d.Seconds())
	}
}

// ObserveCheck records one version check.
func (m *Metrics) ObserveCheck(status string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(status).Inc()
}

// ObserveImport records one import.
func (m *Metrics) ObserveImport(result string) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(result).Inc()
}
