/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttledio

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttledio/testutil"
)

func TestPrometheusMetrics(t *testing.T) {
	promMetrics := NewPrometheusMetrics()

	r, err := NewReaderWithOpts(newMockReadCloser(makeTestData(300)), 100, ReaderOpts{
		Clock:            newFakeClock(),
		MetricsCollector: promMetrics,
	})
	require.NoError(t, err)
	_, err = r.Read(make([]byte, 200))
	require.NoError(t, err)
	_, err = r.Read(make([]byte, 100))
	require.NoError(t, err)

	w, err := NewWriterWithOpts(&mockWriteCloser{}, 1000, WriterOpts{
		Clock:            newFakeClock(),
		MetricsCollector: promMetrics,
	})
	require.NoError(t, err)
	_, err = w.Write(makeTestData(500))
	require.NoError(t, err)

	readLabels := prometheus.Labels{metricsLabelDirection: string(DirectionRead)}
	writeLabels := prometheus.Labels{metricsLabelDirection: string(DirectionWrite)}

	testutil.RequireSamplesCountInCounter(t, promMetrics.BytesTotal.With(readLabels), 300)
	testutil.RequireSamplesCountInCounter(t, promMetrics.BytesTotal.With(writeLabels), 500)
	testutil.RequireCounterValue(t, promMetrics.SleepSecondsTotal.With(readLabels), r.TotalSleepTime().Seconds())
	require.Greater(t, r.TotalSleepTime().Seconds(), 0.0)
	testutil.RequireSamplesCountInCounter(t, promMetrics.SleepSecondsTotal.With(writeLabels), 0)
}

func TestPrometheusMetrics_CurriedLabels(t *testing.T) {
	promMetrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{
		Namespace:         "throttlecat",
		ConstLabels:       prometheus.Labels{"app": "test"},
		CurriedLabelNames: []string{"target"},
	})
	require.Equal(t, 0, promtestutil.CollectAndCount(promMetrics.BytesTotal))

	curried := promMetrics.MustCurryWith(prometheus.Labels{"target": "backup"})
	curried.AddBytes(DirectionWrite, 42)

	require.Equal(t, float64(42), promtestutil.ToFloat64(
		promMetrics.BytesTotal.With(prometheus.Labels{"target": "backup", metricsLabelDirection: "write"})))
	require.Equal(t, 1, promtestutil.CollectAndCount(promMetrics.BytesTotal, "throttlecat_throttledio_bytes_total"))
}

func TestPrometheusMetrics_Register(t *testing.T) {
	promMetrics := NewPrometheusMetrics()
	require.NotPanics(t, promMetrics.MustRegister)
	require.Panics(t, promMetrics.MustRegister)
	promMetrics.Unregister()
	require.NotPanics(t, promMetrics.MustRegister)
	promMetrics.Unregister()
}
