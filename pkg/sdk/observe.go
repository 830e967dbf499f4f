package nexusrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes used as the status label.
const (
	outcomeOK       = "ok"
	outcomeDegraded = "degraded"
	outcomeError    = "error"
)

func outcome(degraded bool, err error) string {
	switch {
	case err != nil:
		return outcomeError
	case degraded:
		return outcomeDegraded
	}
	return outcomeOK
}

// sdkMetrics live on the caller's registerer, apart from the service's global metrics.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexusrag",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by outcome: ok, degraded (fallback embeddings) or error.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nexusrag",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation latency including embedding.",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or swaps in the collector a previous Client
// registered on the same registerer.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("nexusrag: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("nexusrag: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts SDK operations. Both sinks are optional.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}
	m, err := newSDKMetrics(reg)
	if err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

// observe records one finished operation.
func (o *observer) observe(op string, start time.Time, degraded bool, err error) {
	if o == nil {
		return
	}
	elapsed := time.Since(start)
	status := outcome(degraded, err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs := []slog.Attr{slog.String("op", op), slog.Duration("duration", elapsed)}
	level := slog.LevelDebug
	msg := "operation completed"
	switch status {
	case outcomeError:
		level, msg = slog.LevelWarn, "operation failed"
		attrs = append(attrs, slog.Any("error", err))
	case outcomeDegraded:
		level, msg = slog.LevelWarn, "operation served fallback embeddings"
	}
	o.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
