package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates basic metrics configuration.
func Example_basicUsage() {
	// Create a separate registry for this example
	registry := NewRegistry(prometheus.NewRegistry())

	registry.LifecycleEvents.WithLabelValues("jobs", "added").Add(3)
	registry.LifecycleEvents.WithLabelValues("jobs", "removed").Inc()
	registry.SlotsOccupied.WithLabelValues("jobs").Set(2)

	fmt.Println(testutil.ToFloat64(registry.LifecycleEvents.WithLabelValues("jobs", "added")))
	fmt.Println(testutil.ToFloat64(registry.SlotsOccupied.WithLabelValues("jobs")))

	// Output:
	// 3
	// 2
}

// Example_customRegistry demonstrates resolving a Config with a custom namespace.
func Example_customRegistry() {
	config := Config{
		Enabled:   true,
		Registry:  prometheus.NewRegistry(),
		Namespace: "edge",
	}

	registry := config.Resolve()
	registry.TaskFirings.WithLabelValues("jobs", "ok").Add(5)

	fmt.Printf("enabled: %v\n", config.Enabled)
	fmt.Println(testutil.ToFloat64(registry.TaskFirings.WithLabelValues("jobs", "ok")))

	// Output:
	// enabled: true
	// 5
}

// Example_disabled shows that a disabled config resolves to nil.
func Example_disabled() {
	fmt.Println(Config{}.Resolve() == nil)

	// Output:
	// true
}
