// Package metrics provides Prometheus instrumentation for tasko components.
//
// # Quick Start
//
// Enable metrics through the registry configuration:
//
//	reg, err := registry.NewWithConfig(registry.Config{
//		Name:     "jobs",
//		Capacity: 8,
//		Metrics:  metrics.Config{Enabled: true},
//	})
//
// or use the shortcut that creates an isolated Prometheus registry:
//
//	reg, promReg := registry.NewWithMetrics(8, "jobs")
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// Components handed the same Config share one set of collectors.
//
// # Available Metrics
//
//   - tasko_registry_lifecycle_events_total{registry,event}
//   - tasko_registry_slots_occupied{registry}
//   - tasko_registry_slots_capacity{registry}
//   - tasko_registry_add_failures_total{registry,reason}
//   - tasko_task_firings_total{registry,outcome}
//   - tasko_task_duration_seconds{registry}
//   - tasko_sink_dropped_events_total{sink}
package metrics
