package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/tasko/pkg/metrics"
)

// metricsSink translates lifecycle events into Prometheus metrics.
type metricsSink struct {
	lifecycle *prometheus.CounterVec
	occupied  prometheus.Gauge
	firings   *prometheus.CounterVec
	duration  prometheus.Observer
	addFail   *prometheus.CounterVec
	name      string
}

func newMetricsSink(name string, reg *metrics.Registry, capacity int) *metricsSink {
	reg.SlotsCapacity.WithLabelValues(name).Set(float64(capacity))
	occupied := reg.SlotsOccupied.WithLabelValues(name)
	occupied.Set(0)

	return &metricsSink{
		lifecycle: reg.LifecycleEvents,
		occupied:  occupied,
		firings:   reg.TaskFirings,
		duration:  reg.TaskExecutionDuration.WithLabelValues(name),
		addFail:   reg.AddFailures,
		name:      name,
	}
}

// OnEvent implements EventSink.
func (m *metricsSink) OnEvent(e Event) {
	switch e.Kind {
	case EventFired, EventFailed:
		outcome := "ok"
		if e.Kind == EventFailed {
			outcome = "error"
		}
		m.firings.WithLabelValues(m.name, outcome).Inc()
		m.duration.Observe(e.Duration.Seconds())
		return
	case EventAdded:
		m.occupied.Inc()
	case EventRemoved:
		m.occupied.Dec()
	}
	m.lifecycle.WithLabelValues(m.name, e.Kind.String()).Inc()
}

func (m *metricsSink) addFailed(reason string) {
	m.addFail.WithLabelValues(m.name, reason).Inc()
}
