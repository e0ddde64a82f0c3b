// Package metrics provides Prometheus metrics collection for the
// page-contract engine and its HTTP transport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the engine.
type Collector struct {
	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec

	// Validation metrics
	ValidationFailures *prometheus.CounterVec

	// Provider metrics
	ProviderDuration *prometheus.HistogramVec
	ProviderErrors   *prometheus.CounterVec

	// Once-cache metrics
	OnceCacheHits   prometheus.Counter
	OnceCacheMisses prometheus.Counter

	// Transport metrics
	PartialReloads  prometheus.Counter
	VersionConflict prometheus.Counter

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a new metrics collector with all metrics registered on the
// default registry.
func New() *Collector {
	return NewWith(nil)
}

// NewWith registers the collector's metrics on reg. A nil reg uses the
// default registry. Tests pass their own registry to avoid duplicate
// registration panics.
func NewWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	if reg == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
	}

	return &Collector{
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "resolutions_total",
				Help:      "Total number of prop resolutions",
			},
			[]string{"page", "outcome"},
		),
		ResolutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "inertia",
				Name:      "resolution_duration_seconds",
				Help:      "Prop resolution duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"page"},
		),

		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "validation_failures_total",
				Help:      "Total number of call-site validation failures",
			},
			[]string{"page", "kind"},
		),

		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "inertia",
				Name:      "provider_duration_seconds",
				Help:      "Shared provider build duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"provider"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "provider_errors_total",
				Help:      "Total number of provider build failures",
			},
			[]string{"provider"},
		),

		OnceCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "once_cache_hits_total",
				Help:      "Total number of once-prop cache hits",
			},
		),
		OnceCacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "once_cache_misses_total",
				Help:      "Total number of once-prop cache misses",
			},
		),

		PartialReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "partial_reloads_total",
				Help:      "Total number of partial reload requests",
			},
		),
		VersionConflict: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "version_conflicts_total",
				Help:      "Total number of asset version conflicts (409s)",
			},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "config_reloads_total",
				Help:      "Total number of configuration reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "inertia",
				Name:      "config_reload_errors_total",
				Help:      "Total number of failed configuration reloads",
			},
		),
	}
}
