/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRequireSamplesCountInCounter(t *testing.T) {
	bytesCounter := prometheus.NewCounter(prometheus.CounterOpts{Name: "bytes_total"})
	bytesCounter.Add(42)

	mockT := &MockT{}
	RequireSamplesCountInCounter(mockT, bytesCounter, 41)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireSamplesCountInCounter(mockT, bytesCounter, 42)
	require.False(t, mockT.Failed)
}

func TestRequireCounterValue(t *testing.T) {
	sleepCounter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sleep_seconds_total"}, []string{"direction"})
	sleepCounter.WithLabelValues("read").Add(0.03)
	sleepCounter.WithLabelValues("read").Add(0.03)

	mockT := &MockT{}
	RequireCounterValue(mockT, sleepCounter.WithLabelValues("read"), 0.06)
	require.False(t, mockT.Failed)

	mockT = &MockT{}
	RequireCounterValue(mockT, sleepCounter.WithLabelValues("write"), 0.06)
	require.True(t, mockT.Failed)
}
