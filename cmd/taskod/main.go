// Command taskod runs a task registry described by a YAML config file and
// exposes it over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vnykmshr/tasko/internal/config"
	"github.com/vnykmshr/tasko/pkg/eventsink/redissink"
	"github.com/vnykmshr/tasko/pkg/metrics"
	"github.com/vnykmshr/tasko/pkg/scheduling/registry"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./taskod.yaml", "path to config yaml or json")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)
	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("taskod stopped with error")
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Console {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Str("service", "taskod").Logger()
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsCfg := metrics.Config{Enabled: true, Registry: promReg}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var sinks registry.MultiSink
	if cfg.Redis != nil {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()

		sink, err := redissink.New(redissink.Config{
			Redis:   rdb,
			Key:     cfg.Redis.Key,
			Buffer:  cfg.Redis.Buffer,
			Logger:  &log,
			Metrics: metricsCfg,
		})
		if err != nil {
			return err
		}
		defer sink.Close()
		sinks = append(sinks, sink)
		log.Info().Str("addr", cfg.Redis.Addr).Str("key", cfg.Redis.Key).Msg("mirroring events to redis")
	}

	regCfg := registry.Config{
		Name:     cfg.Name,
		Capacity: cfg.Capacity,
		Location: loc,
		Logger:   &log,
		Debug:    cfg.Debug,
		Metrics:  metricsCfg,
	}
	if len(sinks) > 0 {
		regCfg.Sink = sinks
	}
	reg, err := registry.NewWithConfig(regCfg)
	if err != nil {
		return err
	}

	for _, tc := range cfg.Tasks {
		id, err := addTask(reg, tc, log)
		if err != nil {
			log.Error().Err(err).Str("task", tc.Name).Msg("task not added")
			continue
		}
		log.Info().Str("task", tc.Name).Int("id", id).Bool("repeating", tc.Repeating()).Msg("task added")
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		srv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           newHandler(reg, promReg, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("http listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Int("tasks", reg.Len()).Msg("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if srv != nil {
		_ = srv.Shutdown(stopCtx)
	}
	return reg.Close(stopCtx)
}
