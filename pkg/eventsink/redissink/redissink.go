package redissink

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gferrors "github.com/vnykmshr/tasko/pkg/common/errors"
	"github.com/vnykmshr/tasko/pkg/common/validation"
	"github.com/vnykmshr/tasko/pkg/metrics"
	"github.com/vnykmshr/tasko/pkg/scheduling/registry"
)

// Config holds configuration for the Redis sink.
type Config struct {
	// Redis client to write to.
	Redis redis.UniversalClient

	// Key is the prefix of every key the sink writes.
	Key string

	// StreamMaxLen caps the event stream, approximately (default: 1000).
	StreamMaxLen int64

	// Buffer is the number of events queued before new ones are dropped
	// (default: 256).
	Buffer int

	// Timeout bounds each write (default: 500ms).
	Timeout time.Duration

	// Logger receives write failures. Defaults to a no-op logger.
	Logger *zerolog.Logger

	// Metrics counts dropped events.
	Metrics metrics.Config
}

// DefaultConfig returns a Config with every field but Redis and Key set.
func DefaultConfig() Config {
	return Config{
		StreamMaxLen: 1000,
		Buffer:       256,
		Timeout:      500 * time.Millisecond,
	}
}

func validateConfig(cfg Config) error {
	if cfg.Redis == nil {
		return gferrors.NewValidationError("redissink", "redis", nil, "client is required")
	}
	if err := validation.ValidateNotEmpty("redissink", "key", cfg.Key); err != nil {
		return err
	}
	if cfg.StreamMaxLen < 0 {
		return gferrors.NewValidationError("redissink", "stream_max_len", cfg.StreamMaxLen, "must be non-negative")
	}
	if err := validation.ValidateNonNegative("redissink", "buffer", cfg.Buffer); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration("redissink", "timeout", cfg.Timeout)
}

func applyConfigDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.StreamMaxLen == 0 {
		cfg.StreamMaxLen = def.StreamMaxLen
	}
	if cfg.Buffer == 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return cfg
}

// keys names the Redis structures under one prefix.
type keys struct {
	prefix string
}

// events is the lifecycle stream.
func (k keys) events() string { return k.prefix + ":events" }

// occupied is the set of occupied slot ids.
func (k keys) occupied() string { return k.prefix + ":occupied" }

// slot is the state hash of one slot.
func (k keys) slot(id int) string { return k.prefix + ":slot:" + strconv.Itoa(id) }

// Sink mirrors registry events into Redis. OnEvent never blocks: events are
// queued and written by a background goroutine, and dropped when the queue
// is full.
type Sink struct {
	cfg  Config
	keys keys
	log  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan registry.Event
	done   chan struct{}

	dropped        atomic.Uint64
	droppedCounter prometheus.Counter
}

// New creates a Sink and starts its writer.
func New(cfg Config) (*Sink, error) {
	s, err := newSink(cfg)
	if err != nil {
		return nil, err
	}
	go s.loop()
	return s, nil
}

func newSink(cfg Config) (*Sink, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg = applyConfigDefaults(cfg)

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "redissink").Logger()
	}

	s := &Sink{
		cfg:   cfg,
		keys:  keys{prefix: cfg.Key},
		log:   log,
		queue: make(chan registry.Event, cfg.Buffer),
		done:  make(chan struct{}),
	}
	if reg := cfg.Metrics.Resolve(); reg != nil {
		s.droppedCounter = reg.SinkDropped.WithLabelValues("redis")
	}
	return s, nil
}

// OnEvent implements registry.EventSink.
func (s *Sink) OnEvent(e registry.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- e:
	default:
		s.dropped.Add(1)
		if s.droppedCounter != nil {
			s.droppedCounter.Inc()
		}
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close flushes queued events and stops the writer. Events after Close are
// ignored.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *Sink) loop() {
	defer close(s.done)
	for e := range s.queue {
		if err := s.write(e); err != nil {
			s.log.Warn().Err(err).
				Str("event", e.Kind.String()).
				Int("id", e.ID).
				Msg("redis write failed")
		}
	}
}

// write applies one event as a single transaction: the stream entry plus
// the slot hash and occupied set update.
func (s *Sink) write(e registry.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	slotKey := s.keys.slot(e.ID)
	errText := ""
	if e.Err != nil {
		errText = e.Err.Error()
	}

	pipe := s.cfg.Redis.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: s.keys.events(),
		MaxLen: s.cfg.StreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":        e.Kind.String(),
			"id":          e.ID,
			"name":        e.Name,
			"at":          e.At.UnixMilli(),
			"duration_us": e.Duration.Microseconds(),
			"error":       errText,
		},
	})

	switch e.Kind {
	case registry.EventAdded:
		pipe.Del(ctx, slotKey)
		pipe.HSet(ctx, slotKey, "name", e.Name, "active", 1, "pending", 0, "runs", 0, "added", e.At.UnixMilli())
		pipe.SAdd(ctx, s.keys.occupied(), e.ID)
	case registry.EventRemoved:
		pipe.Del(ctx, slotKey)
		pipe.SRem(ctx, s.keys.occupied(), e.ID)
	case registry.EventPaused:
		pipe.HSet(ctx, slotKey, "active", 0)
	case registry.EventResumed:
		pipe.HSet(ctx, slotKey, "active", 1)
	case registry.EventPendingRemoved:
		pipe.HSet(ctx, slotKey, "active", 0, "pending", 1)
	case registry.EventFired, registry.EventFailed:
		pipe.HIncrBy(ctx, slotKey, "runs", 1)
		pipe.HSet(ctx, slotKey, "last_run", e.At.UnixMilli(), "last_error", errText)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redissink: %s event for slot %d: %w", e.Kind, e.ID, err)
	}
	return nil
}

// Occupied returns the slot ids recorded as occupied, in ascending order.
func (s *Sink) Occupied(ctx context.Context) ([]int, error) {
	members, err := s.cfg.Redis.SMembers(ctx, s.keys.occupied()).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("redissink: bad slot id %q in %s", m, s.keys.occupied())
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Slot returns the stored state of one slot, or redis.Nil if none is recorded.
func (s *Sink) Slot(ctx context.Context, id int) (map[string]string, error) {
	fields, err := s.cfg.Redis.HGetAll(ctx, s.keys.slot(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, redis.Nil
	}
	return fields, nil
}

// Events returns the number of entries in the event stream.
func (s *Sink) Events(ctx context.Context) (int64, error) {
	return s.cfg.Redis.XLen(ctx, s.keys.events()).Result()
}
