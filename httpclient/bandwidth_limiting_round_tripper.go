/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-throttledio/log"
	"github.com/acronis/go-throttledio/throttledio"
)

// BandwidthLimitingRoundTripperOpts represents an options for BandwidthLimitingRoundTripper.
type BandwidthLimitingRoundTripperOpts struct {
	// Logger is used for debug messages about throttling of bodies.
	Logger log.FieldLogger

	// MetricsCollector collects transferred bytes and time spent in throttling.
	// Bytes of request bodies are reported in the "write" direction, bytes of response bodies in the "read" one.
	MetricsCollector throttledio.MetricsCollector
}

// BandwidthLimitingRoundTripper wraps implementing http.RoundTripper interface object
// and limits the average throughput of outgoing request bodies (uploading) and incoming response bodies (downloading).
// Each body gets its own limit, so the throughput is not shared between concurrent requests.
// Waiting is interrupted when the request's context is done.
type BandwidthLimitingRoundTripper struct {
	Delegate http.RoundTripper

	// ReadLimit is the maximum average number of bytes per second read from response bodies. 0 means no limit.
	ReadLimit int64

	// WriteLimit is the maximum average number of bytes per second sent in request bodies. 0 means no limit.
	WriteLimit int64

	logger           log.FieldLogger
	metricsCollector throttledio.MetricsCollector
}

// NewBandwidthLimitingRoundTripper creates a new BandwidthLimitingRoundTripper with specified limits.
func NewBandwidthLimitingRoundTripper(
	delegate http.RoundTripper, readLimit, writeLimit int64,
) (*BandwidthLimitingRoundTripper, error) {
	return NewBandwidthLimitingRoundTripperWithOpts(delegate, readLimit, writeLimit, BandwidthLimitingRoundTripperOpts{})
}

// NewBandwidthLimitingRoundTripperWithOpts creates a new BandwidthLimitingRoundTripper with specified limits and options.
func NewBandwidthLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, readLimit, writeLimit int64, opts BandwidthLimitingRoundTripperOpts,
) (*BandwidthLimitingRoundTripper, error) {
	if readLimit < 0 {
		return nil, fmt.Errorf("%w: read limit must not be negative", throttledio.ErrInvalidRateLimit)
	}
	if writeLimit < 0 {
		return nil, fmt.Errorf("%w: write limit must not be negative", throttledio.ErrInvalidRateLimit)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &BandwidthLimitingRoundTripper{
		Delegate:         delegate,
		ReadLimit:        readLimit,
		WriteLimit:       writeLimit,
		logger:           opts.Logger,
		metricsCollector: opts.MetricsCollector,
	}, nil
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
// The returned response body is a *throttledio.Reader.
func (rt *BandwidthLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	req := r
	if r.Body != nil && r.Body != http.NoBody {
		var metricsCollector throttledio.MetricsCollector
		if rt.metricsCollector != nil {
			metricsCollector = requestBodyMetrics{rt.metricsCollector}
		}
		body, err := throttledio.NewReaderWithOpts(r.Body, rt.WriteLimit, throttledio.ReaderOpts{
			Context:          r.Context(),
			Logger:           rt.logger.With(log.String("body", "request")),
			MetricsCollector: metricsCollector,
		})
		if err != nil {
			_ = r.Body.Close() // Per RoundTripper contract.
			return nil, err
		}
		req = CloneHTTPRequest(r)
		req.Body = body
	}

	resp, err := rt.Delegate.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if resp.Body != nil && resp.Body != http.NoBody {
		body, bodyErr := throttledio.NewReaderWithOpts(resp.Body, rt.ReadLimit, throttledio.ReaderOpts{
			Context:          r.Context(),
			Logger:           rt.logger.With(log.String("body", "response")),
			MetricsCollector: rt.metricsCollector,
		})
		if bodyErr != nil {
			_ = resp.Body.Close()
			return nil, bodyErr
		}
		resp.Body = body
	}
	return resp, nil
}

// requestBodyMetrics reports bytes read from the request body as written to the network.
type requestBodyMetrics struct {
	collector throttledio.MetricsCollector
}

func (m requestBodyMetrics) AddBytes(_ throttledio.Direction, n int) {
	m.collector.AddBytes(throttledio.DirectionWrite, n)
}

func (m requestBodyMetrics) AddSleepTime(_ throttledio.Direction, d time.Duration) {
	m.collector.AddSleepTime(throttledio.DirectionWrite, d)
}
