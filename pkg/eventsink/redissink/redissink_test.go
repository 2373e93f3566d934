package redissink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/vnykmshr/tasko/internal/testutil"
	gferrors "github.com/vnykmshr/tasko/pkg/common/errors"
	"github.com/vnykmshr/tasko/pkg/metrics"
	"github.com/vnykmshr/tasko/pkg/scheduling/registry"
)

func TestNewValidation(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing client", Config{Key: "tasko"}},
		{"missing key", Config{Redis: rdb}},
		{"negative buffer", Config{Redis: rdb, Key: "tasko", Buffer: -1}},
		{"negative max len", Config{Redis: rdb, Key: "tasko", StreamMaxLen: -1}},
		{"negative timeout", Config{Redis: rdb, Key: "tasko", Timeout: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			testutil.AssertError(t, err)
			testutil.AssertEqual(t, errors.Is(err, gferrors.ErrInvalidConfiguration), true)
		})
	}
}

func TestKeys(t *testing.T) {
	k := keys{prefix: "tasko:edge"}
	testutil.AssertEqual(t, k.events(), "tasko:edge:events")
	testutil.AssertEqual(t, k.occupied(), "tasko:edge:occupied")
	testutil.AssertEqual(t, k.slot(12), "tasko:edge:slot:12")
}

func TestDefaults(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	s, err := newSink(Config{Redis: rdb, Key: "tasko"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, s.cfg.StreamMaxLen, int64(1000))
	testutil.AssertEqual(t, cap(s.queue), 256)
	testutil.AssertEqual(t, s.cfg.Timeout, 500*time.Millisecond)
}

func TestOnEventDropsWhenFull(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	// No writer is started, so the queue only fills.
	s, err := newSink(Config{
		Redis:   rdb,
		Key:     "tasko",
		Buffer:  2,
		Metrics: metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()},
	})
	testutil.AssertNoError(t, err)

	for i := 0; i < 5; i++ {
		s.OnEvent(registry.Event{Kind: registry.EventFired, ID: i})
	}
	testutil.AssertEqual(t, s.Dropped(), uint64(3))
	testutil.AssertEqual(t, promtest.ToFloat64(s.droppedCounter), 3.0)
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestSinkMirrorsRegistry(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	key := fmt.Sprintf("tasko:test:%d", time.Now().UnixNano())
	t.Cleanup(func() {
		keys := []string{key + ":events", key + ":occupied"}
		for i := 0; i < 3; i++ {
			keys = append(keys, fmt.Sprintf("%s:slot:%d", key, i))
		}
		rdb.Del(context.Background(), keys...)
	})

	sink, err := New(Config{Redis: rdb, Key: key})
	testutil.AssertNoError(t, err)

	reg, err := registry.NewWithConfig(registry.Config{Capacity: 3, Sink: sink})
	testutil.AssertNoError(t, err)

	noop := registry.TaskFunc(func(ctx context.Context) error { return nil })
	kept, err := reg.Add(registry.TaskSpec{Name: "kept", Task: noop, Repeating: true, Interval: time.Hour})
	testutil.AssertNoError(t, err)
	gone, err := reg.Add(registry.TaskSpec{Name: "gone", Task: noop, Repeating: true, Interval: time.Hour})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, reg.Pause(kept), true)
	testutil.AssertEqual(t, reg.Remove(ctx, gone), true)

	testutil.AssertNoError(t, sink.Close())

	ids, err := sink.Occupied(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(ids), 1)
	testutil.AssertEqual(t, ids[0], kept)

	fields, err := sink.Slot(ctx, kept)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fields["name"], "kept")
	testutil.AssertEqual(t, fields["active"], "0")

	_, err = sink.Slot(ctx, gone)
	testutil.AssertEqual(t, errors.Is(err, redis.Nil), true)

	n, err := sink.Events(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, int64(4))
	testutil.AssertEqual(t, sink.Dropped(), uint64(0))

	testutil.AssertNoError(t, reg.Close(ctx))
}
