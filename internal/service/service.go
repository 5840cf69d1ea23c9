// Package service implements the shared driver loop of spec §4.3: every
// observatory service embeds Base and supplies a single Cycle function.
package service

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/ops"
)

// Cycle is one unit of work a service performs each interval.
type Cycle func(ctx context.Context) error

// Base implements the run_forever driver loop, shutdown-flag bridge, and
// cycle metrics shared by all five services, grounded on the teacher's
// internal/ops/retention.go PeriodicPruner ticker loop.
type Base struct {
	Name   string
	Logger *ops.Logger

	shuttingDown atomic.Bool
	shutdownCh   chan struct{}

	cycleDuration       prometheus.Histogram
	cyclesSuccess       prometheus.Counter
	cyclesFailed        prometheus.Counter
	consecutiveFailures prometheus.Gauge
	lastCycleTimestamp  prometheus.Gauge

	metricsServer *http.Server
}

// New builds a Base for the named service, registering its Prometheus
// collectors and installing the SIGINT/SIGTERM-to-flag bridge of spec
// §4.3.
func New(name string, logger *ops.Logger) *Base {
	b := &Base{
		Name:       name,
		Logger:     logger.WithComponent(name),
		shutdownCh: make(chan struct{}),

		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "observatory",
			Subsystem: name,
			Name:      "cycle_duration_seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		cyclesSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "observatory", Subsystem: name, Name: "cycles_success_total",
		}),
		cyclesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "observatory", Subsystem: name, Name: "cycles_failed_total",
		}),
		consecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "observatory", Subsystem: name, Name: "consecutive_failures",
		}),
		lastCycleTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "observatory", Subsystem: name, Name: "last_cycle_timestamp",
		}),
	}

	prometheus.MustRegister(b.cycleDuration, b.cyclesSuccess, b.cyclesFailed, b.consecutiveFailures, b.lastCycleTimestamp)

	go b.bridgeShutdownSignals()
	return b
}

func (b *Base) bridgeShutdownSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	b.Logger.LogShutdown("signal received")
	b.shuttingDown.Store(true)
	close(b.shutdownCh)
}

// ShuttingDown reports whether a shutdown signal has been received.
func (b *Base) ShuttingDown() bool { return b.shuttingDown.Load() }

// ServeMetrics starts the /metrics HTTP endpoint per cfg, also serving as
// the container health-check surface named in spec §7.
func (b *Base) ServeMetrics(cfg config.Metrics) {
	if !cfg.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	b.metricsServer = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := b.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			b.Logger.Error("metrics server stopped", "error", err)
		}
	}()
}

// CloseMetrics shuts down the metrics server if one was started.
func (b *Base) CloseMetrics(ctx context.Context) {
	if b.metricsServer != nil {
		_ = b.metricsServer.Shutdown(ctx)
	}
}

// RunForever drives cycle on intervalSeconds until shutdown is signalled
// or maxConsecutiveFailures is reached (0 means never auto-stop), per
// spec §4.3's run_forever pseudocode.
func (b *Base) RunForever(ctx context.Context, intervalSeconds, maxConsecutiveFailures int, cycle Cycle) error {
	failures := 0
	interval := time.Duration(intervalSeconds) * time.Second

	for !b.ShuttingDown() {
		start := time.Now()
		err := cycle(ctx)
		duration := time.Since(start)

		b.cycleDuration.Observe(duration.Seconds())
		b.lastCycleTimestamp.Set(float64(time.Now().Unix()))

		if err != nil {
			failures++
			b.cyclesFailed.Inc()
			b.consecutiveFailures.Set(float64(failures))
			b.Logger.LogCycle(duration, err, failures)
			if maxConsecutiveFailures > 0 && failures >= maxConsecutiveFailures {
				return err
			}
		} else {
			failures = 0
			b.cyclesSuccess.Inc()
			b.consecutiveFailures.Set(0)
			b.Logger.LogCycle(duration, nil, 0)
		}

		if b.wait(interval) {
			break
		}
	}
	return nil
}

// RunOnce executes exactly one cycle, used by the CLI's --once flag.
func (b *Base) RunOnce(ctx context.Context, cycle Cycle) error {
	start := time.Now()
	err := cycle(ctx)
	b.cycleDuration.Observe(time.Since(start).Seconds())
	b.lastCycleTimestamp.Set(float64(time.Now().Unix()))
	if err != nil {
		b.cyclesFailed.Inc()
		b.Logger.LogCycle(time.Since(start), err, 1)
		return err
	}
	b.cyclesSuccess.Inc()
	b.Logger.LogCycle(time.Since(start), nil, 0)
	return nil
}

// wait blocks interruptibly up to d, returning true if shutdown was
// signalled during the wait.
func (b *Base) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return b.ShuttingDown()
	case <-b.shutdownCh:
		return true
	}
}
