package config

// Config is the taskod daemon configuration.
type Config struct {
	// Name labels logs and metrics.
	Name string `json:"name"`

	// Capacity is the registry slot count (0 = registry default).
	Capacity int `json:"capacity"`

	// Debug enables registry lifecycle logging at start.
	Debug bool `json:"debug"`

	// Timezone evaluates cron expressions (default: local).
	Timezone string `json:"timezone,omitempty"`

	Logging LoggingConfig `json:"logging"`
	Metrics MetricsConfig `json:"metrics"`
	Redis   *RedisConfig  `json:"redis,omitempty"`

	Tasks []TaskConfig `json:"tasks"`
}

type LoggingConfig struct {
	// Level is a zerolog level name (default: info).
	Level string `json:"level"`
	// Console selects human-readable output instead of JSON lines.
	Console bool `json:"console"`
}

type MetricsConfig struct {
	// Addr serves /metrics and /tasks when set, e.g. ":9090".
	Addr string `json:"addr"`
}

type RedisConfig struct {
	Addr string `json:"addr"`
	// Key prefixes the mirrored state (default: tasko:<name>).
	Key string `json:"key"`
	// Buffer is the sink queue length (0 = sink default).
	Buffer int `json:"buffer"`
}

// TaskConfig declares one demo task. Exactly one of Every, Cron or After
// (or none, for an immediate one-shot) selects the kind of task.
type TaskConfig struct {
	Name string `json:"name"`

	// Every makes a repeating task with a fixed period, e.g. "500ms".
	Every string `json:"every,omitempty"`

	// Cron makes a repeating task with a cron expression.
	Cron string `json:"cron,omitempty"`

	// After delays a one-shot task.
	After string `json:"after,omitempty"`

	// MaxRuns makes a repeating task remove itself after this many runs.
	MaxRuns int `json:"max_runs,omitempty"`

	// Message is logged on every run.
	Message string `json:"message,omitempty"`

	// Paused starts a repeating task paused.
	Paused bool `json:"paused,omitempty"`
}

// Repeating reports whether the task has a period or cron schedule.
func (t TaskConfig) Repeating() bool {
	return t.Every != "" || t.Cron != ""
}
