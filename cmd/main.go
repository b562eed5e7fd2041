package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/yusing/chunkstream/internal/common"
	"github.com/yusing/chunkstream/internal/config"
	"github.com/yusing/chunkstream/internal/gperr"
	"github.com/yusing/chunkstream/internal/logging"
	"github.com/yusing/chunkstream/internal/metrics/portstats"
	"github.com/yusing/chunkstream/internal/metrics/reporter"
	"github.com/yusing/chunkstream/internal/server"
	"github.com/yusing/chunkstream/internal/task"
	"github.com/yusing/chunkstream/pkg"
)

func main() {
	initProfiling()

	logging.InitLogger(os.Stderr)
	log.Info().Msgf("chunkstream version %s", pkg.GetVersion())
	log.Trace().Msg("trace enabled")

	cfg, err := config.Load(afero.NewOsFs(), common.ConfigPath)
	if err != nil {
		gperr.LogFatal("invalid config", err)
	}

	collector := portstats.NewCollector()
	task.OnProgramExit("close_collector", collector.Close)

	srv, serr := server.New(cfg, collector)
	if serr != nil {
		log.Fatal().Err(serr).Msg("failed to create server")
	}

	t := task.RootTask("chunkstream", true)
	if err := srv.Start(t); err != nil {
		gperr.LogFatal("server failed to start", err)
	}

	reporter.New(collector, cfg.ReportInterval).Start(t)

	task.WaitExit(cfg.ShutdownTimeout)
}
