package registry

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/vnykmshr/tasko/pkg/common/validation"
	"github.com/vnykmshr/tasko/pkg/metrics"
	"github.com/vnykmshr/tasko/pkg/scheduling/runner"
)

const (
	// DefaultCapacity is the slot count used when Config.Capacity is zero.
	DefaultCapacity = 16

	// DefaultStackSize is passed to the runner when a TaskSpec leaves
	// StackSize at zero.
	DefaultStackSize = 4096
)

// Config holds registry configuration.
type Config struct {
	// Name labels log lines and metrics (default: "tasko").
	Name string

	// Capacity is the fixed number of slots (default: DefaultCapacity).
	Capacity int

	// Runner executes tasks. If nil, a GoRunner owned by the registry is
	// created and drained on Close.
	Runner runner.Runner

	// Location evaluates cron expressions of an owned runner (default: time.Local).
	Location *time.Location

	// StackSize is the default stack size hint (default: DefaultStackSize).
	StackSize int

	// Logger receives debug lifecycle logs and warnings. Defaults to a no-op logger.
	Logger *zerolog.Logger

	// Debug enables lifecycle logging at construction; see EnableDebug.
	Debug bool

	// Sink receives lifecycle events.
	Sink EventSink

	// Metrics enables Prometheus instrumentation.
	Metrics metrics.Config

	// Clock stamps events (default: time.Now).
	Clock func() time.Time
}

func (cfg *Config) validate() error {
	if err := validation.ValidateNonNegative("registry", "capacity", cfg.Capacity); err != nil {
		return err
	}
	return validation.ValidateNonNegative("registry", "stack_size", cfg.StackSize)
}

func (cfg *Config) withDefaults() Config {
	out := *cfg
	if out.Name == "" {
		out.Name = "tasko"
	}
	if out.Capacity == 0 {
		out.Capacity = DefaultCapacity
	}
	if out.StackSize == 0 {
		out.StackSize = DefaultStackSize
	}
	if out.Logger == nil {
		nop := zerolog.Nop()
		out.Logger = &nop
	}
	if out.Clock == nil {
		out.Clock = time.Now
	}
	return out
}
