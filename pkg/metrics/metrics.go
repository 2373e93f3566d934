// Package metrics provides Prometheus instrumentation for tasko components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "tasko"

// Registry holds all metric instances for tasko components.
type Registry struct {
	// Lifecycle metrics
	LifecycleEvents *prometheus.CounterVec
	SlotsOccupied   *prometheus.GaugeVec
	SlotsCapacity   *prometheus.GaugeVec

	// Execution metrics
	TaskFirings           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec
	AddFailures           *prometheus.CounterVec

	// Event sink metrics
	SinkDropped *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by tasko components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithNamespace(reg, DefaultNamespace)
}

// NewRegistryWithNamespace is NewRegistry with a custom metric namespace.
func NewRegistryWithNamespace(reg prometheus.Registerer, namespace string) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		LifecycleEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "lifecycle_events_total",
				Help:      "Lifecycle transitions by kind (added, removed, paused, resumed, pending-removed)",
			},
			[]string{"registry", "event"},
		),

		SlotsOccupied: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "slots_occupied",
				Help:      "Number of occupied task slots",
			},
			[]string{"registry"},
		),

		SlotsCapacity: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "slots_capacity",
				Help:      "Fixed number of task slots",
			},
			[]string{"registry"},
		),

		TaskFirings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "firings_total",
				Help:      "Task firings by outcome (ok, error)",
			},
			[]string{"registry", "outcome"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "duration_seconds",
				Help:      "Time spent in onStart, the task and onStop for one firing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"registry"},
		),

		AddFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "add_failures_total",
				Help:      "Rejected Add calls by reason",
			},
			[]string{"registry", "reason"},
		),

		SinkDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sink",
				Name:      "dropped_events_total",
				Help:      "Events dropped by an asynchronous sink because its buffer was full",
			},
			[]string{"sink"},
		),
	}
}
