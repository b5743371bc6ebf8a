/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestByteSize_Unmarshal(t *testing.T) {
	tests := []struct {
		name      string
		jsonInput string
		yamlInput string
		want      ByteSize
		wantErr   bool
	}{
		{name: "integer", jsonInput: `1024`, yamlInput: "size: 1024", want: 1024},
		{name: "human-readable", jsonInput: `"10M"`, yamlInput: "size: 10M", want: 10 * 1024 * 1024},
		{name: "k8s suffix", jsonInput: `"4Ki"`, yamlInput: "size: 4Ki", want: 4 * 1024},
		{name: "invalid", jsonInput: `"lots"`, yamlInput: "size: lots", wantErr: true},
		{name: "negative", jsonInput: `-1`, yamlInput: "size: -1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/json", func(t *testing.T) {
			var b ByteSize
			err := json.Unmarshal([]byte(tt.jsonInput), &b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, b)
		})
		t.Run(tt.name+"/yaml", func(t *testing.T) {
			var cfg struct{ Size ByteSize }
			err := yaml.Unmarshal([]byte(tt.yamlInput), &cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, cfg.Size)
		})
	}
}

func TestByteSize_Marshal(t *testing.T) {
	data, err := json.Marshal(struct{ Size ByteSize }{ByteSize(512 * 1024)})
	require.NoError(t, err)
	require.JSONEq(t, `{"Size":"512K"}`, string(data))

	data, err = yaml.Marshal(struct {
		Size ByteSize `yaml:"size"`
	}{ByteSize(2 * 1024 * 1024)})
	require.NoError(t, err)
	require.Equal(t, "size: 2M\n", string(data))
}
