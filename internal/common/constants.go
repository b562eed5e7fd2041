package common

import (
	"time"
)

// file, folder structure

const (
	ConfigBasePath    = "config"
	ConfigFileName    = "config.yml"
	ConfigPathDefault = ConfigBasePath + "/" + ConfigFileName
)

const (
	HTTPPort  = 80
	HTTPSPort = 443

	ListenBacklog = 5

	// MaxBlockSize is the upper bound of a single chunk payload and of the
	// request sniffing buffer.
	MaxBlockSize = 8192

	RequestTimeoutDefault  = 5 * time.Second
	ReportIntervalDefault  = 60 * time.Second
	ShutdownTimeoutDefault = 3 // seconds

	RandomSourceDefault = "chacha20"
	RandomDeviceDefault = "/dev/urandom"
)

var DefaultPorts = []int{HTTPPort, HTTPSPort}
