package common

import (
	"os"
	"strings"
)

var (
	IsTest  = GetEnvBool("TEST", false) || strings.HasSuffix(os.Args[0], ".test")
	IsDebug = GetEnvBool("DEBUG", IsTest)
	IsTrace = GetEnvBool("TRACE", false) && IsDebug

	ConfigPath = GetEnvString("CONFIG", ConfigPathDefault)

	// overrides of the config file, empty / zero means "use the file"
	Ports           = GetEnvCommaSep("PORTS", "")
	ReportInterval  = GetEnvDuration("REPORT_INTERVAL", 0)
	ShutdownTimeout = GetEnvInt("SHUTDOWN_TIMEOUT", 0)
)
