/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttledio

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/acronis/go-throttledio/log"
)

// Unbounded is a rate limit that is never exceeded.
const Unbounded int64 = math.MaxInt64

// SleepQuantum is a period for which a throttled call sleeps before re-checking the throughput.
const SleepQuantum = 30 * time.Millisecond

// Direction is a direction of the data flow through a throttled stream.
type Direction string

// Data flow directions.
const (
	DirectionRead  Direction = "read"
	DirectionWrite Direction = "write"
)

// Clock abstracts time operations used by the throttling loop.
// It may be replaced in tests to avoid real sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

func (wallClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// throttler keeps the cumulative throughput of a single stream
// and blocks the caller while it exceeds the rate limit.
type throttler struct {
	id          string
	direction   Direction
	rateLimit   int64
	startTime   time.Time
	transferred atomic.Int64
	sleepTime   atomic.Duration

	ctx              context.Context
	clock            Clock
	logger           log.FieldLogger
	metricsCollector MetricsCollector
}

type throttlerOpts struct {
	Context          context.Context
	Clock            Clock
	Logger           log.FieldLogger
	MetricsCollector MetricsCollector
}

func newThrottler(direction Direction, rateLimit int64, opts throttlerOpts) *throttler {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Clock == nil {
		opts.Clock = wallClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetricsCollector
	}
	id := xid.New().String()
	return &throttler{
		id:               id,
		direction:        direction,
		rateLimit:        rateLimit,
		startTime:        opts.Clock.Now(),
		ctx:              opts.Context,
		clock:            opts.Clock,
		logger:           opts.Logger.With(log.String("stream_id", id), log.String("direction", string(direction))),
		metricsCollector: opts.MetricsCollector,
	}
}

// throughput returns the average number of bytes per second since the stream was created.
// Elapsed time is counted in whole seconds, so during the first second it equals the number of transferred bytes.
func (t *throttler) throughput() int64 {
	elapsed := int64(t.clock.Now().Sub(t.startTime) / time.Second)
	if elapsed <= 0 {
		return t.transferred.Load()
	}
	return t.transferred.Load() / elapsed
}

func (t *throttler) throttle() error {
	if t.throughput() <= t.rateLimit {
		return nil
	}

	var waited time.Duration
	t.logger.Debug("stream throughput exceeds rate limit, throttling",
		log.Int64("rate_limit", t.rateLimit), log.Int64("throughput", t.throughput()))
	defer func() {
		t.logger.Debug("stream throttling finished",
			log.Duration("waited", waited), log.Int64("throughput", t.throughput()))
	}()

	for t.throughput() > t.rateLimit {
		if err := t.ctx.Err(); err != nil {
			return &InterruptedError{Inner: err}
		}
		select {
		case <-t.ctx.Done():
			return &InterruptedError{Inner: t.ctx.Err()}
		case <-t.clock.After(SleepQuantum):
		}
		waited += SleepQuantum
		t.sleepTime.Add(SleepQuantum)
		t.metricsCollector.AddSleepTime(t.direction, SleepQuantum)
	}
	return nil
}

func (t *throttler) add(n int) {
	if n <= 0 {
		return
	}
	t.transferred.Add(int64(n))
	t.metricsCollector.AddBytes(t.direction, n)
}

func (t *throttler) describe(typeName, bytesKey string) string {
	return fmt.Sprintf("throttledio.%s{%s=%d, rateLimit=%s, bytesPerSec=%d, totalSleepTime=%s}",
		typeName, bytesKey, t.transferred.Load(), formatRateLimit(t.rateLimit), t.throughput(), t.sleepTime.Load())
}

func formatRateLimit(rateLimit int64) string {
	if rateLimit == Unbounded {
		return "unbounded"
	}
	return strconv.FormatInt(rateLimit, 10) + " (" + bytefmt.ByteSize(uint64(rateLimit)) + "/s)"
}
