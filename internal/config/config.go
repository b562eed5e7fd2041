// Package config loads the server configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"io/fs"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/yusing/chunkstream/internal/common"
	"github.com/yusing/chunkstream/internal/gperr"
	"github.com/yusing/chunkstream/internal/listener"
	"github.com/yusing/chunkstream/internal/randsrc"
	"github.com/yusing/chunkstream/internal/serialization"
	"github.com/yusing/chunkstream/internal/stream"
)

type (
	Config struct {
		ListenHost     string        `json:"listen_host" validate:"omitempty,ip|hostname"`
		Ports          []int         `json:"ports" validate:"required,min=1,unique,dive,min=1,max=65535"`
		RequestTimeout time.Duration `json:"request_timeout" validate:"gte=0"`
		MaxRequestSize int           `json:"max_request_size" validate:"gte=0,lte=65536"`
		BlockSize      int           `json:"block_size" validate:"gte=0,lte=8192"`
		RandomSource   string        `json:"random_source" validate:"omitempty,oneof=chacha20 crypto urandom"`
		RandomDevice   string        `json:"random_device" validate:"required_if=RandomSource urandom"`
		// RateLimit is in bytes per second per connection, 0 means unlimited.
		RateLimit int `json:"rate_limit" validate:"gte=0"`
		// MaxConnections is per listener, 0 means unbounded.
		MaxConnections  int           `json:"max_connections" validate:"gte=0"`
		RealtimeBytes   bool          `json:"realtime_bytes"`
		ReportInterval  time.Duration `json:"report_interval" validate:"gte=0"`
		ShutdownTimeout int           `json:"shutdown_timeout" validate:"gte=0"`
	}
	// Overrides are values taken from the environment, zero values are ignored.
	Overrides struct {
		Ports           []string
		ReportInterval  time.Duration
		ShutdownTimeout int
	}
)

var ErrInvalidRandomSource = gperr.New("invalid random source")

func DefaultConfig() *Config {
	return &Config{
		ListenHost:      "0.0.0.0",
		Ports:           slices.Clone(common.DefaultPorts),
		RequestTimeout:  common.RequestTimeoutDefault,
		MaxRequestSize:  common.MaxBlockSize,
		BlockSize:       common.MaxBlockSize,
		RandomSource:    common.RandomSourceDefault,
		RandomDevice:    common.RandomDeviceDefault,
		ReportInterval:  common.ReportIntervalDefault,
		ShutdownTimeout: common.ShutdownTimeoutDefault,
	}
}

// EnvOverrides returns the overrides set through CHUNKSTREAM_* variables.
func EnvOverrides() Overrides {
	return Overrides{
		Ports:           common.Ports,
		ReportInterval:  common.ReportInterval,
		ShutdownTimeout: common.ShutdownTimeout,
	}
}

// Load reads the config file at path from fsys, applies the environment
// overrides and validates the result.
//
// A missing file is not an error, the defaults are used instead.
func Load(fsys afero.Fs, path string) (*Config, gperr.Error) {
	return load(fsys, path, EnvOverrides())
}

func load(fsys afero.Fs, path string, overrides Overrides) (*Config, gperr.Error) {
	cfg := DefaultConfig()

	data, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("path", path).Msg("config file not found, using defaults")
	case err != nil:
		return nil, gperr.Wrap(err, "read config")
	default:
		if err := serialization.UnmarshalYAML(data, cfg); err != nil {
			return nil, err.Subject(path)
		}
	}

	if err := cfg.apply(overrides); err != nil {
		return nil, err
	}
	if err := serialization.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) apply(o Overrides) gperr.Error {
	if len(o.Ports) > 0 {
		ports, err := common.ParsePorts(o.Ports)
		if err != nil {
			return gperr.Wrap(err).Subject("PORTS")
		}
		cfg.Ports = ports
	}
	if o.ReportInterval > 0 {
		cfg.ReportInterval = o.ReportInterval
	}
	if o.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = o.ShutdownTimeout
	}
	return nil
}

// Validate implements serialization.CustomValidator.
func (cfg *Config) Validate() gperr.Error {
	factory, err := randsrc.FactoryFor(cfg.RandomSource, cfg.RandomDevice)
	if err != nil {
		return ErrInvalidRandomSource.With(err)
	}
	if cfg.RandomSource != randsrc.KindDevice {
		return nil
	}
	// the device must be readable at startup
	src, err := factory()
	if err != nil {
		return ErrInvalidRandomSource.With(err)
	}
	_ = randsrc.Close(src)
	return nil
}

// HandlerOptions converts cfg to the connection handler options.
func (cfg *Config) HandlerOptions() (stream.Options, error) {
	source, err := randsrc.FactoryFor(cfg.RandomSource, cfg.RandomDevice)
	if err != nil {
		return stream.Options{}, err
	}
	return stream.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		BlockSize:      cfg.BlockSize,
		RateLimit:      cfg.RateLimit,
		RealtimeBytes:  cfg.RealtimeBytes,
		Source:         source,
	}, nil
}

// ListenerConfig returns the listener config of port.
func (cfg *Config) ListenerConfig(port int) listener.Config {
	return listener.Config{
		Port:           port,
		Addr:           net.JoinHostPort(cfg.ListenHost, strconv.Itoa(port)),
		MaxConnections: cfg.MaxConnections,
	}
}
