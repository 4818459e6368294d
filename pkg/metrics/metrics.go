// Package metrics exposes handler activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukex/pvm/pkg/models"
)

// Message outcomes.
const (
	OutcomeHandled   = "handled"
	OutcomeMalformed = "malformed"
	OutcomeStale     = "stale"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	messages   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	pointers   *prometheus.CounterVec
	executions *prometheus.CounterVec
}

// New creates the collectors and registers them with registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvm_messages_total",
				Help: "Total number of handled messages by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pvm_message_duration_seconds",
				Help:    "Duration of message handling",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		pointers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvm_pointer_transitions_total",
				Help: "Total number of pointer state transitions",
			},
			[]string{"state"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvm_executions_total",
				Help: "Total number of executions by status reached",
			},
			[]string{"status"},
		),
	}

	registerer.MustRegister(m.messages, m.duration, m.pointers, m.executions)

	return m
}

func (m *Metrics) ObserveMessage(command, outcome string, elapsed time.Duration) {
	m.messages.WithLabelValues(command, outcome).Inc()
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (m *Metrics) PointerTransition(state models.PointerState) {
	m.pointers.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) ExecutionReached(status models.ExecutionStatus) {
	m.executions.WithLabelValues(string(status)).Inc()
}

// Messages is the pvm_messages_total counter.
func (m *Metrics) Messages() *prometheus.CounterVec {
	return m.messages
}

// Executions is the pvm_executions_total counter.
func (m *Metrics) Executions() *prometheus.CounterVec {
	return m.executions
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.InfoContext(ctx, "Starting metrics server", "addr", addr)

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
