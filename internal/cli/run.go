package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/cyclectl/internal/config"
	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/dtc"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
	"codeberg.org/mutker/cyclectl/internal/metrics"
	"codeberg.org/mutker/cyclectl/internal/monitor"
	"codeberg.org/mutker/cyclectl/internal/pid"
	"codeberg.org/mutker/cyclectl/internal/platform"
	"codeberg.org/mutker/cyclectl/internal/scheduler"
	"codeberg.org/mutker/cyclectl/internal/telemetry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the control cycle until interrupted",
		Long: `Run initializes the platform, then executes one control cycle per
cycle period until SIGINT or SIGTERM. Every heartbeat interval a heartbeat
is logged, and optionally recorded to the telemetry database and exported
as Prometheus metrics.

Example:
  cyclectl run --cycle-time 10 --heartbeat-interval 1000
  cyclectl run --telemetry --database ./heartbeats.db --metrics-addr :9310`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cmd, cfg)
		},
	}
}

// app holds everything run sets up, so cleanup can tear it down in reverse.
type app struct {
	log       logger.Logger
	pidFile   *pid.File
	platform  platform.Platform
	store     telemetry.Store
	collector metrics.Collector
	core      *core.Core
	monitor   *monitor.Service
	scheduler *scheduler.Scheduler
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.InitWithWriter(cmd.ErrOrStderr(), level, logger.IsService())

	a, err := setup(cfg, logger.Get())
	if err != nil {
		return err
	}
	defer a.cleanup()

	metricsDone := make(chan struct{})
	go func() {
		defer close(metricsDone)
		if err := a.collector.Serve(ctx); err != nil {
			a.log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	if err := a.scheduler.Run(ctx); err != nil {
		return errors.New().Wrap(errors.ErrMainLoop, err)
	}
	<-metricsDone

	a.log.Info().
		Uint64("cycles", a.core.CycleCount()).
		Uint64("heartbeats", a.monitor.Heartbeats()).
		Uint64("sink_errors", a.monitor.SinkErrors()).
		Uint64("overruns", a.scheduler.Overruns()).
		Msg("Received termination signal, shutting down")

	return nil
}

func setup(cfg *config.Config, log logger.Logger) (*app, error) {
	errFactory := errors.New()
	a := &app{log: log}

	a.pidFile = pid.New(cfg.PIDDir)
	if err := a.pidFile.Acquire(); err != nil {
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			a.cleanup()
		}
	}()

	plat, err := platform.New(cfg, log.With("platform"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	if err := plat.Init(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	a.platform = plat

	collector, err := metrics.NewService(metrics.Config{
		Enabled: cfg.MetricsAddr != "",
		Addr:    cfg.MetricsAddr,
	}, prometheus.NewRegistry(), log)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitMetrics, err)
	}
	a.collector = collector

	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.Enabled = cfg.Telemetry
	telemetryCfg.DBPath = cfg.TelemetryDB
	telemetryCfg.BatchSize = cfg.BatchSize
	store, err := telemetry.NewService(telemetryCfg, log)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitTelemetry, err)
	}
	a.store = store

	a.core = core.New(core.WithRecorder(dtc.Multi(dtc.Log(log.With("dtc")), collector)))

	session := uuid.NewString()
	sink := monitor.MultiSink{monitor.NewLogSink(log), store, collector}
	a.monitor, err = monitor.New(a.core, plat, sink, log,
		monitor.WithInterval(cfg.HeartbeatInterval),
		monitor.WithMaxTick(core.Tick(cfg.MaxTick)),
		monitor.WithSession(session),
	)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	a.scheduler, err = scheduler.New(a.monitor, cfg.CycleTime(), log,
		scheduler.WithObserver(collector),
		scheduler.WithProbes(plat.Probes(), cfg.ProbeInterval(), a.core),
	)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	// Bind last so a busy address fails startup and nothing after it can.
	if err := collector.Listen(); err != nil {
		return nil, err
	}

	log.Info().
		Str("session", session).
		Str("platform", cfg.Platform).
		Uint32("heartbeat_interval", cfg.HeartbeatInterval).
		Dur("cycle_time", cfg.CycleTime()).
		Bool("telemetry", cfg.Telemetry).
		Msg("Controller initialized")

	ok = true
	return a, nil
}

func (a *app) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close telemetry store")
		}
	}

	if a.platform != nil {
		if err := a.platform.Shutdown(); err != nil {
			a.log.Error().Err(err).Msg("Failed to shut down platform")
		}
	}

	if err := a.pidFile.Release(); err != nil {
		a.log.Error().Err(err).Msg("Failed to remove PID file")
	}
}
