package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/yusing/chunkstream/internal/common"
	"github.com/yusing/chunkstream/internal/serialization"
	expect "github.com/yusing/chunkstream/internal/utils/testing"
)

func memFS(t *testing.T, content string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	expect.NoError(t, afero.WriteFile(fsys, common.ConfigPathDefault, []byte(content), 0o644))
	return fsys
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := load(afero.NewMemMapFs(), common.ConfigPathDefault, Overrides{})
	expect.NoError(t, err)
	expect.Equal(t, cfg, DefaultConfig())
	expect.Equal(t, cfg.Ports, []int{80, 443})
	expect.Equal(t, cfg.RequestTimeout, 5*time.Second)
	expect.Equal(t, cfg.BlockSize, 8192)
	expect.Equal(t, cfg.MaxConnections, 0)
}

func TestLoadFile(t *testing.T) {
	fsys := memFS(t, `
listen_host: 127.0.0.1
ports: [8080, 8443]
request_timeout: 2s
block_size: 4096
random_source: crypto
rate_limit: 1048576
max_connections: 100
realtime_bytes: true
report_interval: 10s
`)
	cfg, err := load(fsys, common.ConfigPathDefault, Overrides{})
	expect.NoError(t, err)
	expect.Equal(t, cfg.ListenHost, "127.0.0.1")
	expect.Equal(t, cfg.Ports, []int{8080, 8443})
	expect.Equal(t, cfg.RequestTimeout, 2*time.Second)
	expect.Equal(t, cfg.BlockSize, 4096)
	expect.Equal(t, cfg.RandomSource, "crypto")
	expect.Equal(t, cfg.RateLimit, 1<<20)
	expect.Equal(t, cfg.MaxConnections, 100)
	expect.True(t, cfg.RealtimeBytes)
	expect.Equal(t, cfg.ReportInterval, 10*time.Second)
	// untouched keys keep their defaults
	expect.Equal(t, cfg.MaxRequestSize, 8192)
	expect.Equal(t, cfg.ShutdownTimeout, 3)
}

func TestOverrides(t *testing.T) {
	fsys := memFS(t, "ports: [8080]\nreport_interval: 10s\n")
	cfg, err := load(fsys, common.ConfigPathDefault, Overrides{
		Ports:           []string{"9000", "9443"},
		ReportInterval:  time.Second,
		ShutdownTimeout: 7,
	})
	expect.NoError(t, err)
	expect.Equal(t, cfg.Ports, []int{9000, 9443})
	expect.Equal(t, cfg.ReportInterval, time.Second)
	expect.Equal(t, cfg.ShutdownTimeout, 7)
}

func TestInvalidOverridePorts(t *testing.T) {
	_, err := load(afero.NewMemMapFs(), common.ConfigPathDefault, Overrides{Ports: []string{"80", "http"}})
	expect.ErrorContains(t, err, "PORTS")
	expect.ErrorContains(t, err, `invalid port "http"`)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no ports", "ports: []\n", "Config.Ports"},
		{"port out of range", "ports: [80, 70000]\n", "Config.Ports[1]"},
		{"duplicate ports", "ports: [80, 80]\n", `require "unique"`},
		{"block too large", "block_size: 9000\n", "Config.BlockSize"},
		{"negative rate", "rate_limit: -1\n", "Config.RateLimit"},
		{"unknown source", "random_source: dice\n", `require "oneof:chacha20 crypto urandom"`},
		{"unknown key", "port: 80\n", "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(memFS(t, tt.content), common.ConfigPathDefault, Overrides{})
			expect.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRandomDevice(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "random")
	expect.NoError(t, os.WriteFile(dev, make([]byte, 64), 0o644))

	cfg, err := load(memFS(t, "random_source: urandom\nrandom_device: "+dev+"\n"), common.ConfigPathDefault, Overrides{})
	expect.NoError(t, err)

	opts, herr := cfg.HandlerOptions()
	expect.NoError(t, herr)
	src, serr := opts.Source()
	expect.NoError(t, serr)
	expect.NoError(t, src.Fill(make([]byte, 64)))

	_, err = load(memFS(t, "random_source: urandom\nrandom_device: /nonexistent/random\n"), common.ConfigPathDefault, Overrides{})
	expect.ErrorIs(t, ErrInvalidRandomSource, err)
}

func TestHandlerOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 1000
	cfg.RealtimeBytes = true

	opts, err := cfg.HandlerOptions()
	expect.NoError(t, err)
	expect.Equal(t, opts.RequestTimeout, 5*time.Second)
	expect.Equal(t, opts.MaxRequestSize, 8192)
	expect.Equal(t, opts.BlockSize, 8192)
	expect.Equal(t, opts.RateLimit, 1000)
	expect.True(t, opts.RealtimeBytes)
	expect.NotNil(t, opts.Source)
}

func TestListenerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 5
	lc := cfg.ListenerConfig(443)
	expect.Equal(t, lc.Port, 443)
	expect.Equal(t, lc.Addr, "0.0.0.0:443")
	expect.Equal(t, lc.MaxConnections, 5)

	cfg.ListenHost = "::1"
	expect.Equal(t, cfg.ListenerConfig(80).Addr, "[::1]:80")
}

func TestDefaultConfigIsValid(t *testing.T) {
	expect.NoError(t, serialization.Validate(DefaultConfig()))
}
