/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testStreamsConfigYAML = `
streams:
  mode: Fast
  timeout: 2s
  sizes:
    int: 100
    float: 1.5
    human: 1M
    negative: -5
    invalid: huge
  upload:
    enabled: true
    rateLimit: 64K
`

func TestViperAdapter_SetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"streams": {"mode": "slow"}}`), 0o600))

	va := NewViperAdapter()
	require.NoError(t, va.SetFromFile(path, DataTypeJSON))
	require.True(t, va.IsSet("streams.mode"))
	mode, err := va.GetString("streams.mode")
	require.NoError(t, err)
	require.Equal(t, "slow", mode)
}

func TestViperAdapter_GetByteSize(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(testStreamsConfigYAML), DataTypeYAML))
	va.Set("streams.sizes.typed", ByteSize(42))
	va.Set("streams.sizes.numericString", "2048")

	tests := []struct {
		key     string
		want    ByteSize
		wantErr bool
	}{
		{key: "streams.sizes.int", want: 100},
		{key: "streams.sizes.float", want: 1},
		{key: "streams.sizes.human", want: 1024 * 1024},
		{key: "streams.sizes.typed", want: 42},
		{key: "streams.sizes.numericString", want: 2048},
		{key: "streams.sizes.missing", want: 0},
		{key: "streams.sizes.negative", wantErr: true},
		{key: "streams.sizes.invalid", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := va.GetByteSize(tt.key)
			if tt.wantErr {
				require.ErrorContains(t, err, tt.key)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestViperAdapter_GetStringFromSet(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(testStreamsConfigYAML), DataTypeYAML))

	mode, err := va.GetStringFromSet("streams.mode", []string{"slow", "fast"}, true)
	require.NoError(t, err)
	require.Equal(t, "Fast", mode)

	_, err = va.GetStringFromSet("streams.mode", []string{"slow", "fast"}, false)
	require.ErrorContains(t, err, `streams.mode: unknown value "Fast"`)

	timeout, err := va.GetDuration("streams.timeout")
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, timeout)
}

func TestViperAdapter_UnmarshalKey(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(testStreamsConfigYAML), DataTypeYAML))

	var upload struct {
		Enabled   bool     `mapstructure:"enabled"`
		RateLimit ByteSize `mapstructure:"rateLimit"`
	}
	require.NoError(t, NewKeyPrefixedDataProvider(va, "streams").UnmarshalKey("upload", &upload, WithTextUnmarshalerHook()))
	require.True(t, upload.Enabled)
	require.Equal(t, ByteSize(64*1024), upload.RateLimit)
}

func TestKeyPrefixedDataProvider(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(testStreamsConfigYAML), DataTypeYAML))
	dp := NewKeyPrefixedDataProvider(va, "streams.upload")

	dp.SetDefault("chunk", 10)
	chunk, err := dp.GetInt("chunk")
	require.NoError(t, err)
	require.Equal(t, 10, chunk)

	enabled, err := dp.GetBool("enabled")
	require.NoError(t, err)
	require.True(t, enabled)

	require.EqualError(t, dp.WrapKeyErr("rateLimit", os.ErrInvalid), "streams.upload.rateLimit: invalid argument")
}
