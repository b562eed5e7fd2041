//go:build pprof

package main

import (
	"net/http"
	_ "net/http/pprof"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

func initProfiling() {
	go func() {
		log.Info().Msgf("pprof server started at http://localhost:7777/debug/pprof/")
		log.Error().Err(http.ListenAndServe("localhost:7777", nil)).Msg("pprof server failed")
	}()
	go func() {
		ticker := time.NewTicker(time.Second * 10)
		defer ticker.Stop()
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			log.Info().
				Str("heap_alloc", humanize.Bytes(m.Alloc)).
				Str("heap_sys", humanize.Bytes(m.HeapSys)).
				Str("stack_inuse", humanize.Bytes(m.StackInuse)).
				Str("sys", humanize.Bytes(m.Sys)).
				Int("goroutines", runtime.NumGoroutine()).
				Uint32("gc", m.NumGC).
				Msg("memory stats")
		}
	}()
}
