/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package middleware contains HTTP middlewares that limit the throughput of request and response bodies.
package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/acronis/go-throttledio/log"
	"github.com/acronis/go-throttledio/throttledio"
)

// BandwidthLimitOpts represents an options for BandwidthLimit middleware.
type BandwidthLimitOpts struct {
	// Logger is used for debug messages about throttling
	// if there is no logger in the request's context (see NewContextWithLogger).
	Logger log.FieldLogger

	// MetricsCollector collects transferred bytes and time spent in throttling.
	// Request bodies are reported in the "read" direction and response bodies in the "write" one.
	MetricsCollector throttledio.MetricsCollector
}

type bandwidthLimitHandler struct {
	next       http.Handler
	readLimit  int64
	writeLimit int64
	opts       BandwidthLimitOpts
}

// BandwidthLimit is a middleware that limits the average throughput of reading the request body
// (readLimit, bytes per second) and writing the response body (writeLimit, bytes per second).
// Zero limit means no limit for the corresponding direction.
// Each request gets its own limits, the throughput is not shared between concurrent requests.
// Throttling is interrupted when the request's context is done.
func BandwidthLimit(readLimit, writeLimit int64) (func(next http.Handler) http.Handler, error) {
	return BandwidthLimitWithOpts(readLimit, writeLimit, BandwidthLimitOpts{})
}

// MustBandwidthLimit is a version of BandwidthLimit that panics if an error occurs.
func MustBandwidthLimit(readLimit, writeLimit int64) func(next http.Handler) http.Handler {
	mw, err := BandwidthLimit(readLimit, writeLimit)
	if err != nil {
		panic(err)
	}
	return mw
}

// BandwidthLimitWithOpts is a configurable version of BandwidthLimit middleware.
func BandwidthLimitWithOpts(
	readLimit, writeLimit int64, opts BandwidthLimitOpts,
) (func(next http.Handler) http.Handler, error) {
	if readLimit < 0 {
		return nil, fmt.Errorf("%w: read limit must not be negative", throttledio.ErrInvalidRateLimit)
	}
	if writeLimit < 0 {
		return nil, fmt.Errorf("%w: write limit must not be negative", throttledio.ErrInvalidRateLimit)
	}
	if writeLimit == 0 {
		writeLimit = throttledio.Unbounded
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return func(next http.Handler) http.Handler {
		return &bandwidthLimitHandler{next: next, readLimit: readLimit, writeLimit: writeLimit, opts: opts}
	}, nil
}

// MustBandwidthLimitWithOpts is a version of BandwidthLimitWithOpts that panics if an error occurs.
func MustBandwidthLimitWithOpts(readLimit, writeLimit int64, opts BandwidthLimitOpts) func(next http.Handler) http.Handler {
	mw, err := BandwidthLimitWithOpts(readLimit, writeLimit, opts)
	if err != nil {
		panic(err)
	}
	return mw
}

func (h *bandwidthLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromContext(r.Context())
	if logger == nil {
		logger = h.opts.Logger
	}

	if r.Body != nil && r.Body != http.NoBody {
		body, err := throttledio.NewReaderWithOpts(r.Body, h.readLimit, throttledio.ReaderOpts{
			Context:          r.Context(),
			Logger:           logger.With(log.String("body", "request")),
			MetricsCollector: h.opts.MetricsCollector,
		})
		if err != nil {
			logger.Error("failed to limit bandwidth of request body", log.Error(err))
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		r.Body = body
	}

	respBody, err := throttledio.NewWriterWithOpts(responseBodyWriter{rw}, h.writeLimit, throttledio.WriterOpts{
		Context:          r.Context(),
		Logger:           logger.With(log.String("body", "response")),
		MetricsCollector: h.opts.MetricsCollector,
	})
	if err != nil {
		logger.Error("failed to limit bandwidth of response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.next.ServeHTTP(&throttledResponseWriter{ResponseWriter: rw, body: respBody}, r)
}

// responseBodyWriter lets throttledio.Writer own the response writer without closing it.
type responseBodyWriter struct {
	io.Writer
}

func (responseBodyWriter) Close() error { return nil }

type throttledResponseWriter struct {
	http.ResponseWriter
	body *throttledio.Writer
}

func (w *throttledResponseWriter) Write(p []byte) (int, error) {
	return w.body.Write(p)
}

func (w *throttledResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the original http.ResponseWriter. It's used by http.ResponseController.
func (w *throttledResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
