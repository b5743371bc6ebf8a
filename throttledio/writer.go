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

// WriterOpts represents options for Writer.
type WriterOpts struct {
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

// Writer wraps io.WriteCloser and limits the average number of bytes written per second.
// Writes that are not smaller than the rate limit are split into chunks of rate limit size,
// and each chunk waits for the throughput to fall under the limit separately.
//
// Writer must not be used by several goroutines simultaneously.
// Diagnostic methods (TotalBytes, Throughput, TotalSleepTime, String) may be called concurrently.
type Writer struct {
	delegate io.WriteCloser
	*throttler
}

var (
	_ io.WriteCloser = (*Writer)(nil)
	_ io.ByteWriter  = (*Writer)(nil)
)

// NewWriter creates a new Writer without a rate limit.
func NewWriter(w io.WriteCloser) (*Writer, error) {
	return NewWriterWithOpts(w, Unbounded, WriterOpts{})
}

// NewWriterWithOpts creates a new Writer with the specified rate limit (in bytes per second) and options.
// Rate limit must be positive.
func NewWriterWithOpts(w io.WriteCloser, rateLimit int64, opts WriterOpts) (*Writer, error) {
	if rateLimit <= 0 {
		return nil, fmt.Errorf("%w: write rate limit must be positive, got %d", ErrInvalidRateLimit, rateLimit)
	}
	return &Writer{
		delegate: w,
		throttler: newThrottler(DirectionWrite, rateLimit, throttlerOpts{
			Context:          opts.Context,
			Clock:            opts.Clock,
			Logger:           opts.Logger,
			MetricsCollector: opts.MetricsCollector,
		}),
	}, nil
}

// Write writes p to the underlying writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.WriteRange(p, 0, len(p))
}

// WriteByte writes a single byte to the underlying writer.
func (w *Writer) WriteByte(c byte) error {
	if err := w.throttle(); err != nil {
		return err
	}
	if bw, ok := w.delegate.(io.ByteWriter); ok {
		if err := bw.WriteByte(c); err != nil {
			return err
		}
		w.add(1)
		return nil
	}
	_, err := w.writeChunk([]byte{c})
	return err
}

// WriteRange writes n bytes of p starting from the offset off.
// It returns the number of bytes written from the range.
func (w *Writer) WriteRange(p []byte, off, n int) (int, error) {
	if err := checkRange(len(p), off, n); err != nil {
		return 0, err
	}

	if int64(n) < w.rateLimit {
		if err := w.throttle(); err != nil {
			return 0, err
		}
		return w.writeChunk(p[off : off+n])
	}

	chunkSize := int(w.rateLimit)
	written := 0
	remaining := n
	for remaining > chunkSize {
		if err := w.throttle(); err != nil {
			return written, err
		}
		cn, err := w.writeChunk(p[off : off+chunkSize])
		written += cn
		if err != nil {
			return written, err
		}
		off += chunkSize
		remaining -= chunkSize
	}

	// remaining is in (0, chunkSize] here.
	if err := w.throttle(); err != nil {
		return written, err
	}
	cn, err := w.writeChunk(p[off : off+remaining])
	return written + cn, err
}

func (w *Writer) writeChunk(chunk []byte) (int, error) {
	n, err := w.delegate.Write(chunk)
	w.add(n)
	if err != nil {
		return n, err
	}
	if n != len(chunk) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Close closes the underlying writer.
func (w *Writer) Close() error {
	return w.delegate.Close()
}

// TotalBytes returns the total number of bytes written.
func (w *Writer) TotalBytes() int64 {
	return w.transferred.Load()
}

// Throughput returns the average number of bytes written per second since the Writer creation.
func (w *Writer) Throughput() int64 {
	return w.throughput()
}

// TotalSleepTime returns the total time spent in waiting for the throughput to fall under the rate limit.
func (w *Writer) TotalSleepTime() time.Duration {
	return w.sleepTime.Load()
}

// RateLimit returns the rate limit in bytes per second.
func (w *Writer) RateLimit() int64 {
	return w.rateLimit
}

// String returns a human-readable summary of the Writer state.
func (w *Writer) String() string {
	return w.describe("Writer", "bytesWritten")
}
