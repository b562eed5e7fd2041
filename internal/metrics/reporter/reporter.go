// Package reporter periodically logs a human readable summary of the
// port metrics.
package reporter

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/yusing/chunkstream/internal/common"
	"github.com/yusing/chunkstream/internal/metrics/portstats"
	"github.com/yusing/chunkstream/internal/task"
	"go.uber.org/atomic"
)

type (
	Snapshotter interface {
		Snapshot() portstats.Snapshot
	}
	Reporter struct {
		collector Snapshotter
		interval  time.Duration
		proc      *process.Process

		reports atomic.Uint64
	}
)

func New(collector Snapshotter, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = common.ReportIntervalDefault
	}
	r := &Reporter{collector: collector, interval: interval}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("process stats unavailable")
	} else {
		r.proc = proc
	}
	return r
}

// Start reports every interval until parent is canceled, then reports
// one last time before the reporter task finishes.
func (r *Reporter) Start(parent task.Parent) {
	t := parent.Subtask("reporter", true)

	stopped := make(chan struct{})
	t.OnCancel("final_report", func() {
		<-stopped
		r.Report()
	})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		log.Debug().Dur("interval", r.interval).Msg("starting reporter")

		for {
			select {
			case <-t.Context().Done():
				return
			case <-ticker.C:
				r.Report()
			}
		}
	}()
}

// Report logs the current summary and returns it.
func (r *Reporter) Report() string {
	summary := Render(r.collector.Snapshot()) + "\n" + r.renderProcess()
	r.reports.Inc()
	log.Info().Msg("metrics summary\n" + summary)
	return summary
}

// Reports returns the number of reports made so far.
func (r *Reporter) Reports() uint64 {
	return r.reports.Load()
}

// Render formats a snapshot, one line per port followed by the totals.
func Render(snap portstats.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "uptime: %s", snap.Uptime.Round(time.Second))

	views := snap.Views()
	if len(views) == 0 {
		b.WriteString("\nno connections yet")
		return b.String()
	}
	for _, v := range views {
		fmt.Fprintf(&b, "\nport %d: total %d, active %d, completed %d, sent %s, avg duration %s, rate %s/s",
			v.Port,
			v.Total,
			v.Active,
			v.Completed,
			humanize.Bytes(v.Bytes),
			v.AvgDuration.Round(time.Millisecond),
			humanize.Bytes(uint64(v.Rate1)),
		)
	}
	total, active, bytes := snap.Totals()
	fmt.Fprintf(&b, "\nall ports: total %s, active %d, sent %s",
		humanize.Comma(int64(total)),
		active,
		humanize.Bytes(bytes),
	)
	return b.String()
}

func (r *Reporter) renderProcess() string {
	goroutines := runtime.NumGoroutine()
	if r.proc == nil {
		return fmt.Sprintf("process: goroutines %d", goroutines)
	}
	mem, err := r.proc.MemoryInfo()
	if err != nil {
		log.Debug().Err(err).Msg("failed to read process memory")
		return fmt.Sprintf("process: goroutines %d", goroutines)
	}
	return fmt.Sprintf("process: rss %s, goroutines %d", humanize.Bytes(mem.RSS), goroutines)
}
