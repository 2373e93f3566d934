package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/tasko/internal/testutil"
	gferrors "github.com/vnykmshr/tasko/pkg/common/errors"
)

const sampleYAML = `
name: edge
capacity: 4
debug: true
logging:
  level: debug
  console: true
metrics:
  addr: ":9090"
redis:
  addr: localhost:6379
tasks:
  - name: heartbeat
    every: 250ms
    message: beat
  - name: countdown
    every: 100ms
    max_runs: 3
  - name: nightly
    cron: "0 0 3 * * *"
    paused: true
  - name: warmup
    after: 1s
`

func TestParseYAML(t *testing.T) {
	cfg, err := Parse("taskod.yaml", []byte(sampleYAML))
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, cfg.Name, "edge")
	testutil.AssertEqual(t, cfg.Capacity, 4)
	testutil.AssertEqual(t, cfg.Debug, true)
	testutil.AssertEqual(t, cfg.Logging.Level, "debug")
	testutil.AssertEqual(t, cfg.Metrics.Addr, ":9090")
	testutil.AssertEqual(t, cfg.Redis.Key, "tasko:edge")
	testutil.AssertEqual(t, len(cfg.Tasks), 4)
	testutil.AssertEqual(t, cfg.Tasks[1].MaxRuns, 3)
	testutil.AssertEqual(t, cfg.Tasks[2].Repeating(), true)
	testutil.AssertEqual(t, cfg.Tasks[3].Repeating(), false)
}

func TestParseJSON(t *testing.T) {
	cfg, err := Parse("taskod.json", []byte(`{"tasks":[{"name":"x","every":"1s"}]}`))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.Name, "taskod")
	testutil.AssertEqual(t, cfg.Logging.Level, "info")
	testutil.AssertEqual(t, cfg.Redis == nil, true)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown field", "capacty: 4\n", "unknown field"},
		{"negative capacity", "capacity: -1\n", "capacity"},
		{"too many tasks", "capacity: 1\ntasks:\n  - every: 1s\n  - every: 2s\n", "more tasks than slots"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad timezone", "timezone: Mars/Base\n", "timezone"},
		{"redis without addr", "redis:\n  key: x\n", "redis.addr"},
		{"two schedules", "tasks:\n  - every: 1s\n    cron: '* * * * *'\n", "only one of"},
		{"zero period", "tasks:\n  - every: 0s\n", "must be positive"},
		{"bad duration", "tasks:\n  - after: soon\n", "invalid duration"},
		{"max runs on one-shot", "tasks:\n  - max_runs: 2\n", "need every or cron"},
		{"bad yaml", "tasks: [\n", "yaml unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("c.yaml", []byte(tt.doc))
			testutil.AssertError(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := &Config{Capacity: -1, Logging: LoggingConfig{Level: "loud"}}
	err := cfg.Validate()
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrInvalidConfiguration), true)
	testutil.AssertEqual(t, strings.Contains(err.Error(), "capacity"), true)
	testutil.AssertEqual(t, strings.Contains(err.Error(), "logging.level"), true)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskod.yml")
	testutil.AssertNoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.Name, "edge")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	testutil.AssertEqual(t, errors.Is(err, os.ErrNotExist), true)
}

func TestParseDurationField(t *testing.T) {
	d, err := ParseDurationField("x", " 1m30s ")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, d, 90*time.Second)

	d, err = ParseDurationField("x", "")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, d, time.Duration(0))

	_, err = ParseDurationField("x", "-1s")
	testutil.AssertError(t, err)
}
