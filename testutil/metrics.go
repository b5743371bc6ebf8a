/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCounterValue asserts that passed prometheus.Counter has the given value.
func AssertCounterValue(t assert.TestingT, counter prometheus.Counter, wantValue float64) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	reg := prometheus.NewPedanticRegistry()
	if !assert.NoError(t, reg.Register(counter)) {
		return false
	}
	gotMetrics, err := reg.Gather()
	if !assert.NoError(t, err) {
		return false
	}
	if !assert.Equal(t, 1, len(gotMetrics)) {
		return false
	}
	return assert.InDelta(t, wantValue, gotMetrics[0].GetMetric()[0].GetCounter().GetValue(), 1e-9)
}

// RequireCounterValue calls AssertCounterValue and fails test immediately in case of error.
func RequireCounterValue(t require.TestingT, counter prometheus.Counter, wantValue float64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertCounterValue(t, counter, wantValue) {
		return
	}
	t.FailNow()
}

// AssertSamplesCountInCounter asserts that passed prometheus.Counter has the given integer value.
func AssertSamplesCountInCounter(t assert.TestingT, counter prometheus.Counter, wantCount int) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return AssertCounterValue(t, counter, float64(wantCount))
}

// RequireSamplesCountInCounter calls AssertSamplesCountInCounter and fails test immediately in case of error.
func RequireSamplesCountInCounter(t require.TestingT, counter prometheus.Counter, wantCount int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertSamplesCountInCounter(t, counter, wantCount) {
		return
	}
	t.FailNow()
}
