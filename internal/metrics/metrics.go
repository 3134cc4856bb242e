package metrics

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
	"codeberg.org/mutker/cyclectl/internal/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type service struct {
	cfg      Config
	log      logger.Logger
	registry *prometheus.Registry

	mu       sync.Mutex
	listener net.Listener

	cycles        prometheus.Counter
	cycleDuration prometheus.Histogram
	heartbeats    prometheus.Counter
	lastTick      prometheus.Gauge
	cycleCount    prometheus.Gauge
	lastHeartbeat prometheus.Gauge
	faults        *prometheus.CounterVec
}

// No-op implementation
type noopCollector struct{}

// NewService returns a Prometheus backed Collector registered on reg, or a
// no-op collector when metrics are disabled. A nil reg gets a fresh registry.
func NewService(cfg Config, reg *prometheus.Registry, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Metrics disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &service{
		cfg:      cfg,
		log:      log.With("metrics"),
		registry: reg,
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Control cycles executed.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time spent in one control cycle.",
			Buckets:   prometheus.ExponentialBuckets(cycleBucketStart, cycleBucketFactor, cycleBucketCount),
		}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Heartbeats emitted.",
		}),
		lastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_tick",
			Help:      "Tick carried by the most recent heartbeat.",
		}),
		cycleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cycle_count",
			Help:      "Core cycle count at the most recent heartbeat.",
		}),
		lastHeartbeat: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_heartbeat_timestamp_seconds",
			Help:      "Unix time of the most recent heartbeat.",
		}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_faults_total",
			Help:      "Sensor faults reported into the core.",
		}, []string{"sensor"}),
	}

	for _, c := range []prometheus.Collector{
		s.cycles, s.cycleDuration, s.heartbeats, s.lastTick, s.cycleCount, s.lastHeartbeat, s.faults,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errFactory.Wrap(ErrRegister, err)
		}
	}

	// Pre-create every sensor series so dashboards see zeroes.
	for _, sensor := range core.Sensors() {
		s.faults.WithLabelValues(sensor.String())
	}

	s.log.Debug().Str("addr", cfg.Addr).Msg("Metrics service initialized")

	return s, nil
}

func (s *service) Emit(_ context.Context, hb monitor.Heartbeat) error {
	s.heartbeats.Inc()
	if tick, ok := hb.Tick.Get(); ok {
		s.lastTick.Set(float64(tick))
	}
	s.cycleCount.Set(float64(hb.CycleCount))
	if !hb.Timestamp.IsZero() {
		s.lastHeartbeat.Set(float64(hb.Timestamp.Unix()))
	}

	return nil
}

func (s *service) RecordFault(sensor core.SensorID) {
	s.faults.WithLabelValues(sensor.String()).Inc()
}

func (s *service) ObserveCycle(d time.Duration) {
	s.cycles.Inc()
	s.cycleDuration.Observe(d.Seconds())
}

func (s *service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Listen binds the configured address. Serve binds on its own when Listen
// was not called; calling it first surfaces bind errors at startup.
func (s *service) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.New().WithData(ErrListen, struct {
			Addr  string
			Error string
		}{
			Addr:  s.cfg.Addr,
			Error: err.Error(),
		})
	}
	s.listener = ln

	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve exposes /metrics on the bound address until ctx is done.
func (s *service) Serve(ctx context.Context) error {
	errFactory := errors.New()

	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errFactory.Wrap(ErrServe, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errFactory.Wrap(ErrServiceShutdown, err)
		}
		return nil
	}
}

func (*noopCollector) Emit(_ context.Context, _ monitor.Heartbeat) error {
	return nil
}

func (*noopCollector) RecordFault(_ core.SensorID) {}

func (*noopCollector) ObserveCycle(_ time.Duration) {}

func (*noopCollector) Listen() error {
	return nil
}

func (*noopCollector) Addr() net.Addr {
	return nil
}

func (*noopCollector) Serve(_ context.Context) error {
	return nil
}

func (*noopCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}
