/*
Package tasko provides a bounded registry for one-shot and repeating tasks.

Task Scheduling (pkg/scheduling):
  - registry: Fixed-capacity task table with add, remove, pause, resume and self-removal
  - runner: Execution contexts and periodic timers the registry runs on

Observability:
  - metrics: Prometheus metrics for registry lifecycle and task firings
  - eventsink/redissink: Mirror of slot state and events into Redis

Example usage:

	import (
		"github.com/vnykmshr/tasko/pkg/scheduling/registry"
	)

	reg := registry.New(16)
	defer reg.Close(context.Background())

	id, err := reg.Add(registry.TaskSpec{
		Repeating: true,
		Interval:  time.Second,
		Task:      registry.TaskFunc(poll),
	})
	if err != nil {
		log.Fatal(err)
	}
	reg.Pause(id)

The taskod command (cmd/taskod) runs a registry from a YAML file and serves
metrics and a small control API.
*/
package tasko
