/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttledio/log/logtest"
	"github.com/acronis/go-throttledio/testutil"
	"github.com/acronis/go-throttledio/throttledio"
)

func makeEchoServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(rw, r.Body)
	}))
}

func makePayloadServer(size int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write(bytes.Repeat([]byte{'x'}, size))
	}))
}

func TestNewBandwidthLimitingRoundTripper(t *testing.T) {
	tests := []struct {
		Name       string
		ReadLimit  int64
		WriteLimit int64
		WantErr    error
	}{
		{Name: "read limit is negative", ReadLimit: -1, WantErr: throttledio.ErrInvalidRateLimit},
		{Name: "write limit is negative", WriteLimit: -1, WantErr: throttledio.ErrInvalidRateLimit},
		{Name: "no limits", ReadLimit: 0, WriteLimit: 0},
		{Name: "both limits", ReadLimit: 1024, WriteLimit: 2048},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			rt, err := NewBandwidthLimitingRoundTripper(http.DefaultTransport, tt.ReadLimit, tt.WriteLimit)
			if tt.WantErr != nil {
				require.ErrorIs(t, err, tt.WantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.ReadLimit, rt.ReadLimit)
			require.Equal(t, tt.WriteLimit, rt.WriteLimit)
		})
	}
}

func TestBandwidthLimitingRoundTripper_BodiesPassUnchanged(t *testing.T) {
	server := makeEchoServer()
	defer server.Close()

	promMetrics := throttledio.NewPrometheusMetrics()
	tr, err := NewBandwidthLimitingRoundTripperWithOpts(http.DefaultTransport, 0, 0, BandwidthLimitingRoundTripperOpts{
		MetricsCollector: promMetrics,
	})
	require.NoError(t, err)
	client := &http.Client{Transport: tr}

	payload := bytes.Repeat([]byte("0123456789"), 1000)
	body := bytes.NewReader(payload)
	req, err := http.NewRequest(http.MethodPost, server.URL, body)
	require.NoError(t, err)
	origBody := req.Body

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Same(t, origBody, req.Body, "original request must not be modified")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, payload, respBody)

	throttledBody, ok := resp.Body.(*throttledio.Reader)
	require.True(t, ok)
	require.Equal(t, int64(len(payload)), throttledBody.TotalBytes())
	require.Equal(t, throttledio.Unbounded, throttledBody.RateLimit())

	testutil.RequireSamplesCountInCounter(t,
		promMetrics.BytesTotal.With(prometheus.Labels{"direction": "write"}), len(payload))
	testutil.RequireSamplesCountInCounter(t,
		promMetrics.BytesTotal.With(prometheus.Labels{"direction": "read"}), len(payload))
}

func TestBandwidthLimitingRoundTripper_ThrottlesDownload(t *testing.T) {
	const payloadSize = 3000
	server := makePayloadServer(payloadSize)
	defer server.Close()

	logRecorder := logtest.NewRecorder()
	tr, err := NewBandwidthLimitingRoundTripperWithOpts(http.DefaultTransport, 2048, 0, BandwidthLimitingRoundTripperOpts{
		Logger: logRecorder,
	})
	require.NoError(t, err)
	client := &http.Client{Transport: tr}

	startedAt := time.Now()
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Len(t, respBody, payloadSize)

	// More than 2048 bytes cannot be read during the first whole second.
	require.GreaterOrEqual(t, time.Since(startedAt), time.Second)
	throttledBody := resp.Body.(*throttledio.Reader)
	require.Greater(t, throttledBody.TotalSleepTime(), time.Duration(0))

	entry, found := logRecorder.FindEntry("stream throughput exceeds rate limit, throttling")
	require.True(t, found)
	bodyField, found := entry.FindField("body")
	require.True(t, found)
	require.Equal(t, "response", string(bodyField.Bytes))
}

func TestBandwidthLimitingRoundTripper_DownloadInterruptedByContext(t *testing.T) {
	server := makePayloadServer(64 * 1024)
	defer server.Close()

	tr, err := NewBandwidthLimitingRoundTripper(http.DefaultTransport, 1024, 0)
	require.NoError(t, err)
	client := &http.Client{Transport: tr}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	_, err = io.ReadAll(resp.Body)
	require.ErrorIs(t, err, throttledio.ErrInterrupted)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBandwidthLimitingRoundTripper_UploadInterruptedByContext(t *testing.T) {
	server := makeEchoServer()
	defer server.Close()

	tr, err := NewBandwidthLimitingRoundTripper(http.DefaultTransport, 0, 10)
	require.NoError(t, err)
	client := &http.Client{Transport: tr}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, io.MultiReader(
		bytes.NewReader(make([]byte, 100)), bytes.NewReader(make([]byte, 100))))
	require.NoError(t, err)

	startedAt := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(startedAt), 5*time.Second)
}
