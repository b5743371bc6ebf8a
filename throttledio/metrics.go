/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttledio

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-throttledio/internal/libinfo"
)

const metricsLabelDirection = "direction"

// MetricsCollector represents a collector of metrics for throttled streams.
type MetricsCollector interface {
	// AddBytes increments the total number of bytes transferred in the given direction.
	AddBytes(direction Direction, n int)

	// AddSleepTime increments the total time spent in throttling in the given direction.
	AddSleepTime(direction Direction, d time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// PrometheusMetrics.MustCurryWith must be called further with the same labels if it's not empty.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for throttled streams.
type PrometheusMetrics struct {
	BytesTotal        *prometheus.CounterVec
	SleepSecondsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	labelNames := append(append([]string{}, opts.CurriedLabelNames...), metricsLabelDirection)

	bytesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "throttledio_bytes_total",
			Help:        "Number of bytes transferred through throttled streams.",
			ConstLabels: libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels),
		},
		labelNames,
	)

	sleepSecondsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "throttledio_sleep_seconds_total",
			Help:        "Time spent in waiting for throughput to fall under the rate limit.",
			ConstLabels: libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels),
		},
		labelNames,
	)

	return &PrometheusMetrics{
		BytesTotal:        bytesTotal,
		SleepSecondsTotal: sleepSecondsTotal,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		BytesTotal:        pm.BytesTotal.MustCurryWith(labels),
		SleepSecondsTotal: pm.SleepSecondsTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.BytesTotal, pm.SleepSecondsTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.BytesTotal)
	prometheus.Unregister(pm.SleepSecondsTotal)
}

// AddBytes increments the total number of bytes transferred in the given direction.
func (pm *PrometheusMetrics) AddBytes(direction Direction, n int) {
	pm.BytesTotal.With(prometheus.Labels{metricsLabelDirection: string(direction)}).Add(float64(n))
}

// AddSleepTime increments the total time spent in throttling in the given direction.
func (pm *PrometheusMetrics) AddSleepTime(direction Direction, d time.Duration) {
	pm.SleepSecondsTotal.With(prometheus.Labels{metricsLabelDirection: string(direction)}).Add(d.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) AddBytes(Direction, int)               {}
func (disabledMetrics) AddSleepTime(Direction, time.Duration) {}

var disabledMetricsCollector = disabledMetrics{}
