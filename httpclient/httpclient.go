/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient provides an HTTP client and a round tripper that limit the throughput of request and response bodies.
package httpclient

import (
	"fmt"
	"net/http"

	"github.com/acronis/go-throttledio/log"
	"github.com/acronis/go-throttledio/throttledio"
)

// CloneHTTPRequest creates a shallow copy of the request along with a deep copy of the Headers.
func CloneHTTPRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = CloneHTTPHeader(req.Header)
	return r
}

// CloneHTTPHeader creates a deep copy of an http.Header.
func CloneHTTPHeader(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		newValues := make([]string, len(values))
		copy(newValues, values)
		out[key] = newValues
	}
	return out
}

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// Logger is used by the bandwidth limiting round tripper.
	Logger log.FieldLogger

	// MetricsCollector collects bytes transferred in bodies and time spent in throttling.
	MetricsCollector throttledio.MetricsCollector
}

// New creates an HTTP client with bandwidth limiting configured by cfg.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// Must creates an HTTP client with bandwidth limiting configured by cfg and panics if any error occurs.
func Must(cfg *Config) *http.Client {
	client, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// NewWithOpts creates an HTTP client with bandwidth limiting configured by cfg and the given options.
// The bandwidth limiting round tripper is added only if throttling is enabled at least in one direction.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if bw := cfg.Bandwidth; bw != nil && (bw.Read.Enabled || bw.Write.Enabled) {
		var err error
		delegate, err = NewBandwidthLimitingRoundTripperWithOpts(delegate,
			limitOrZero(bw.Read), limitOrZero(bw.Write), BandwidthLimitingRoundTripperOpts{
				Logger:           opts.Logger,
				MetricsCollector: opts.MetricsCollector,
			})
		if err != nil {
			return nil, fmt.Errorf("create bandwidth limiting round tripper: %w", err)
		}
	}

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// MustWithOpts creates an HTTP client with bandwidth limiting configured by cfg and the given options
// and panics if any error occurs.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}

func limitOrZero(dc throttledio.DirectionConfig) int64 {
	if !dc.Enabled {
		return 0
	}
	return dc.EffectiveRateLimit()
}
