/*
Package runner defines the execution layer that the task registry sits on and
provides GoRunner, an implementation built on goroutines and time.Timer.

A Runner spawns one-shot execution contexts, destroys them, reports which
execution context a context.Context belongs to, and creates periodic timers:

	r := runner.New()

	h, err := r.Spawn(runner.SpawnSpec{
		Name:     "once",
		Identity: runner.Identity{Slot: 0},
		Delay:    100 * time.Millisecond,
		Entry: func(ctx context.Context, id runner.Identity) {
			// runs once unless r.Destroy(h) is called first
		},
	})

	t, err := r.NewTimer(runner.TimerSpec{
		Name:     "tick",
		Identity: runner.Identity{Slot: 1},
		Schedule: runner.Every(10 * time.Millisecond),
		OnFire:   func(ctx context.Context, id runner.Identity) {},
	})
	t.Start()
	defer t.Delete()

Go has no goroutine identity, so the execution context is carried on the
context handed to Entry and OnFire. Current(ctx) reads it back, which is how
the registry recognises a task removing itself.

Timer schedules are robfig/cron schedules. Every builds a fixed-period schedule
that, unlike cron.Every, keeps sub-second periods.
*/
package runner
