/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttledio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/acronis/go-throttledio/log"
)

// ReaderOpts represents options for Reader.
type ReaderOpts struct {
	// Context interrupts waiting for the throughput to fall under the rate limit when it's done.
	// context.Background() is used if nil.
	Context context.Context

	// Clock is used for measuring throughput and sleeping. Wall clock is used if nil.
	Clock Clock

	// Logger is used for debug messages about throttling. Disabled logger is used if nil.
	Logger log.FieldLogger

	// MetricsCollector collects transferred bytes and time spent in throttling.
	MetricsCollector MetricsCollector
}

// Reader wraps io.ReadCloser and limits the average number of bytes read per second.
// Before each read it waits (sleeping by SleepQuantum) until the average throughput
// since the Reader creation is not greater than the rate limit.
//
// Reader must not be used by several goroutines simultaneously.
// Diagnostic methods (TotalBytes, Throughput, TotalSleepTime, String) may be called concurrently.
type Reader struct {
	delegate io.ReadCloser
	*throttler
}

var (
	_ io.ReadCloser = (*Reader)(nil)
	_ io.ByteReader = (*Reader)(nil)
)

// NewReader creates a new Reader without a rate limit.
func NewReader(r io.ReadCloser) (*Reader, error) {
	return NewReaderWithOpts(r, Unbounded, ReaderOpts{})
}

// NewReaderWithOpts creates a new Reader with the specified rate limit (in bytes per second) and options.
// Negative rate limit is not allowed. Zero rate limit is treated as Unbounded.
func NewReaderWithOpts(r io.ReadCloser, rateLimit int64, opts ReaderOpts) (*Reader, error) {
	if rateLimit < 0 {
		return nil, fmt.Errorf("%w: read rate limit should not be negative, got %d", ErrInvalidRateLimit, rateLimit)
	}
	if rateLimit == 0 {
		rateLimit = Unbounded
	}
	return &Reader{
		delegate: r,
		throttler: newThrottler(DirectionRead, rateLimit, throttlerOpts{
			Context:          opts.Context,
			Clock:            opts.Clock,
			Logger:           opts.Logger,
			MetricsCollector: opts.MetricsCollector,
		}),
	}, nil
}

// Read reads up to len(p) bytes from the underlying reader.
// Bytes returned by the underlying reader are counted even if they are accompanied by an error (e.g. io.EOF).
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.throttle(); err != nil {
		return 0, err
	}
	n, err := r.delegate.Read(p)
	r.add(n)
	return n, err
}

// ReadByte reads a single byte from the underlying reader.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.throttle(); err != nil {
		return 0, err
	}
	if br, ok := r.delegate.(io.ByteReader); ok {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		r.add(1)
		return c, nil
	}
	var buf [1]byte
	if _, err := io.ReadFull(r.delegate, buf[:]); err != nil {
		return 0, err
	}
	r.add(1)
	return buf[0], nil
}

// ReadRange reads up to n bytes into p starting from the offset off.
func (r *Reader) ReadRange(p []byte, off, n int) (int, error) {
	if err := checkRange(len(p), off, n); err != nil {
		return 0, err
	}
	return r.Read(p[off : off+n])
}

// Close closes the underlying reader.
func (r *Reader) Close() error {
	return r.delegate.Close()
}

// TotalBytes returns the total number of bytes read.
func (r *Reader) TotalBytes() int64 {
	return r.transferred.Load()
}

// Throughput returns the average number of bytes read per second since the Reader creation.
func (r *Reader) Throughput() int64 {
	return r.throughput()
}

// TotalSleepTime returns the total time spent in waiting for the throughput to fall under the rate limit.
func (r *Reader) TotalSleepTime() time.Duration {
	return r.sleepTime.Load()
}

// RateLimit returns the rate limit in bytes per second.
func (r *Reader) RateLimit() int64 {
	return r.rateLimit
}

// String returns a human-readable summary of the Reader state.
func (r *Reader) String() string {
	return r.describe("Reader", "bytesRead")
}
