package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gferrors "github.com/vnykmshr/tasko/pkg/common/errors"
)

// Load reads, decodes and validates the config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data, which is YAML or JSON according to path's extension.
// Unknown fields are rejected.
func Parse(path string, data []byte) (*Config, error) {
	jb, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = "taskod"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Redis != nil && c.Redis.Key == "" {
		c.Redis.Key = "tasko:" + c.Name
	}
}

// Validate checks field ranges and task definitions. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Capacity < 0 {
		errs = append(errs, gferrors.NewValidationError("config", "capacity", c.Capacity, "cannot be negative"))
	}
	if c.Capacity > 0 && len(c.Tasks) > c.Capacity {
		errs = append(errs, gferrors.NewValidationError("config", "tasks", len(c.Tasks), "more tasks than slots").
			WithHint(fmt.Sprintf("raise capacity to at least %d", len(c.Tasks))))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, gferrors.NewValidationError("config", "logging.level", c.Logging.Level, err.Error()))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, gferrors.NewValidationError("config", "timezone", c.Timezone, err.Error()))
	}
	if c.Redis != nil {
		if strings.TrimSpace(c.Redis.Addr) == "" {
			errs = append(errs, gferrors.NewValidationError("config", "redis.addr", c.Redis.Addr, "cannot be empty"))
		}
		if c.Redis.Buffer < 0 {
			errs = append(errs, gferrors.NewValidationError("config", "redis.buffer", c.Redis.Buffer, "cannot be negative"))
		}
	}

	for i, t := range c.Tasks {
		if err := t.validate(fmt.Sprintf("tasks[%d]", i)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t TaskConfig) validate(path string) error {
	kinds := 0
	for _, s := range []string{t.Every, t.Cron, t.After} {
		if s != "" {
			kinds++
		}
	}
	if kinds > 1 {
		return gferrors.NewValidationError("config", path, t.Name, "set only one of every, cron and after")
	}

	if t.Every != "" {
		d, err := ParseDurationField(path+".every", t.Every)
		if err != nil {
			return err
		}
		if d == 0 {
			return gferrors.NewValidationError("config", path+".every", t.Every, "must be positive")
		}
	}
	if _, err := ParseDurationField(path+".after", t.After); err != nil {
		return err
	}
	if t.MaxRuns < 0 {
		return gferrors.NewValidationError("config", path+".max_runs", t.MaxRuns, "cannot be negative")
	}
	if !t.Repeating() && (t.MaxRuns > 0 || t.Paused) {
		return gferrors.NewValidationError("config", path, t.Name, "max_runs and paused need every or cron")
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseDurationField parses a non-negative duration; empty means zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
