/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttledio

import (
	"fmt"
	"io"

	"github.com/acronis/go-throttledio/config"
)

const cfgDefaultKeyPrefix = "throttle"

const (
	cfgKeyReadEnabled    = "read.enabled"
	cfgKeyReadRateLimit  = "read.rateLimit"
	cfgKeyWriteEnabled   = "write.enabled"
	cfgKeyWriteRateLimit = "write.rateLimit"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// DirectionConfig represents configuration of throttling for a single direction (reading or writing).
type DirectionConfig struct {
	// Enabled is a flag that enables throttling.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// RateLimit is the maximum average number of bytes per second.
	// Both integers and human-readable strings (e.g. "512K") are accepted.
	RateLimit config.ByteSize `mapstructure:"rateLimit" yaml:"rateLimit" json:"rateLimit"`
}

// Config represents a set of configuration parameters for throttled streams.
type Config struct {
	Read  DirectionConfig `mapstructure:"read" yaml:"read" json:"read"`
	Write DirectionConfig `mapstructure:"write" yaml:"write" json:"write"`

	keyPrefix string
}

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Throttling is disabled in both directions by default.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyReadEnabled, false)
	dp.SetDefault(cfgKeyWriteEnabled, false)
}

// Set sets throttling configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	if err := setDirectionConfig(dp, &c.Read, cfgKeyReadEnabled, cfgKeyReadRateLimit); err != nil {
		return err
	}
	return setDirectionConfig(dp, &c.Write, cfgKeyWriteEnabled, cfgKeyWriteRateLimit)
}

func setDirectionConfig(dp config.DataProvider, dc *DirectionConfig, enabledKey, rateLimitKey string) (err error) {
	if dc.Enabled, err = dp.GetBool(enabledKey); err != nil {
		return err
	}
	if !dc.Enabled {
		return nil
	}
	if dc.RateLimit, err = dp.GetByteSize(rateLimitKey); err != nil {
		return err
	}
	if dc.RateLimit == 0 {
		return dp.WrapKeyErr(rateLimitKey, fmt.Errorf("must be positive when throttling is enabled"))
	}
	if uint64(dc.RateLimit) > uint64(Unbounded) {
		return dp.WrapKeyErr(rateLimitKey, fmt.Errorf("must not be greater than %d", Unbounded))
	}
	return nil
}

// EffectiveRateLimit returns the configured rate limit if throttling is enabled and Unbounded otherwise.
func (dc DirectionConfig) EffectiveRateLimit() int64 {
	if !dc.Enabled {
		return Unbounded
	}
	return int64(dc.RateLimit)
}

// WrapReader wraps r with a Reader limited by the read configuration.
// If read throttling is disabled, the Reader is unbounded but still counts bytes.
func (c *Config) WrapReader(r io.ReadCloser, opts ReaderOpts) (*Reader, error) {
	return NewReaderWithOpts(r, c.Read.EffectiveRateLimit(), opts)
}

// WrapWriter wraps w with a Writer limited by the write configuration.
// If write throttling is disabled, the Writer is unbounded but still counts bytes.
func (c *Config) WrapWriter(w io.WriteCloser, opts WriterOpts) (*Writer, error) {
	return NewWriterWithOpts(w, c.Write.EffectiveRateLimit(), opts)
}
