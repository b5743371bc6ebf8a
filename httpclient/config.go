/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"time"

	"github.com/acronis/go-throttledio/config"
	"github.com/acronis/go-throttledio/throttledio"
)

// DefaultClientWaitTimeout is a default timeout for a client to wait for a request.
const DefaultClientWaitTimeout = 10 * time.Second

const (
	cfgKeyTimeout   = "timeout"
	cfgKeyBandwidth = "bandwidth"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents options for HTTP client configuration.
//
//	httpClient:
//	  timeout: 30s
//	  bandwidth:
//	    read:             # response bodies
//	      enabled: true
//	      rateLimit: 1M
//	    write:            # request bodies
//	      enabled: true
//	      rateLimit: 256K
type Config struct {
	// Timeout is the maximum time to wait for a request to be made.
	// Note that it includes reading of the response body, so it should be large enough for throttled downloads.
	Timeout time.Duration `mapstructure:"timeout"`

	// Bandwidth is a configuration of throttling for request (write) and response (read) bodies.
	Bandwidth *throttledio.Config `mapstructure:"bandwidth"`

	// keyPrefix is a prefix for configuration parameters.
	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultClientWaitTimeout)
	c.bandwidthConfig().SetProviderDefaults(config.NewKeyPrefixedDataProvider(dp, cfgKeyBandwidth))
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	timeout, err := dp.GetDuration(cfgKeyTimeout)
	if err != nil {
		return err
	}
	if timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("must not be negative"))
	}
	c.Timeout = timeout

	return c.bandwidthConfig().Set(config.NewKeyPrefixedDataProvider(dp, cfgKeyBandwidth))
}

func (c *Config) bandwidthConfig() *throttledio.Config {
	if c.Bandwidth == nil {
		c.Bandwidth = throttledio.NewConfig(throttledio.WithKeyPrefix(cfgKeyBandwidth))
	}
	return c.Bandwidth
}
