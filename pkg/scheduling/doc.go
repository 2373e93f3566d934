/*
Package scheduling groups the task execution packages of tasko.

  - registry: Bounded table of one-shot and repeating tasks
  - runner: Execution contexts and timers backing the registry

Registry:

	reg := registry.New(8)
	defer reg.Close(context.Background())

	reg.Add(registry.TaskSpec{
		Name:      "sync",
		Repeating: true,
		Cron:      "@every 30s",
		Task:      registry.TaskFunc(syncAll),
	})

Runner:

The registry creates a runner.GoRunner unless one is supplied. A custom
runner.Runner can enforce resource limits or run tasks elsewhere:

	rn := runner.NewWithConfig(runner.Config{MaxTimers: 4})
	reg, err := registry.NewWithConfig(registry.Config{Runner: rn})
*/
package scheduling
