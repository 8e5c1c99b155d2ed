// Package metrics exposes Prometheus collectors for command dispatch, the
// command map and background jobs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// ResultOK labels command runs that returned no error.
const ResultOK = "ok"

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	jobs     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charfred_commands_total",
		Help: "Command invocations partitioned by command and result.",
	}, []string{"command", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "charfred_command_duration_seconds",
		Help:    "Duration in seconds of command runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charfred_job_events_total",
		Help: "Background job state changes partitioned by job and state.",
	}, []string{"job", "state"})
	registry.MustRegister(commands, duration, jobs)
	return &Metrics{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		commands: commands,
		duration: duration,
		jobs:     jobs,
	}
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WatchCommandMap publishes the number of tracked commands as a gauge.
func (m *Metrics) WatchCommandMap(size func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "charfred_command_map_entries",
		Help: "Commands whose replies are currently tracked.",
	}, func() float64 { return float64(size()) }))
}

// ObserveJob counts a job state change.
func (m *Metrics) ObserveJob(job, state string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(job, state).Inc()
}

// Tracker times a single command run.
type Tracker struct {
	metrics *Metrics
	command string
	start   time.Time
}

// Track starts timing a run of command.
func (m *Metrics) Track(command string) *Tracker {
	return &Tracker{metrics: m, command: command, start: time.Now()}
}

// End records the run with its result label.
func (t *Tracker) End(result string) {
	if t == nil || t.metrics == nil {
		return
	}
	t.metrics.commands.WithLabelValues(t.command, result).Inc()
	t.metrics.duration.WithLabelValues(t.command).Observe(time.Since(t.start).Seconds())
}

// Router serves /metrics and /healthz.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return r
}

// Serve listens on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown")
	}
	return ctx.Err()
}
