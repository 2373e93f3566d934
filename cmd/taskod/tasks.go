package main

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/vnykmshr/tasko/internal/config"
	"github.com/vnykmshr/tasko/pkg/scheduling/registry"
)

// addTask registers the demo task described by tc. Every run logs the task's
// message; a repeating task with MaxRuns removes itself on its last run.
func addTask(reg registry.Registry, tc config.TaskConfig, log zerolog.Logger) (int, error) {
	every, err := config.ParseDurationField("every", tc.Every)
	if err != nil {
		return registry.InvalidID, err
	}
	after, err := config.ParseDurationField("after", tc.After)
	if err != nil {
		return registry.InvalidID, err
	}

	message := tc.Message
	if message == "" {
		message = "run"
	}

	var runs atomic.Int64
	task := registry.TaskFunc(func(ctx context.Context) error {
		n := runs.Add(1)
		log.Info().Str("task", tc.Name).Int64("run", n).Msg(message)

		if tc.MaxRuns > 0 && n >= int64(tc.MaxRuns) {
			if id, ok := reg.Self(ctx); ok {
				reg.Remove(ctx, id)
				log.Info().Str("task", tc.Name).Int("id", id).Msg("max runs reached, removing")
			}
		}
		return nil
	})

	spec := registry.TaskSpec{
		Name:      tc.Name,
		Task:      task,
		Repeating: tc.Repeating(),
		Interval:  every,
		Cron:      tc.Cron,
		Delay:     after,
	}
	if !spec.Repeating {
		spec.OnStop = func(_ context.Context, id int) {
			log.Debug().Str("task", tc.Name).Int("id", id).Dur("after", after).Msg("one-shot done")
		}
	}

	id, err := reg.Add(spec)
	if err != nil {
		return registry.InvalidID, err
	}
	if tc.Paused {
		reg.Pause(id)
	}
	return id, nil
}
