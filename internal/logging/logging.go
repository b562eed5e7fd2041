// Package logging configures the global zerolog logger for the server.
//
// Output is human readable. Multi-line messages such as the periodic
// metrics summary keep their layout: continuation lines are indented past
// the timestamp and level columns.
//
//nolint:zerologlint
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yusing/chunkstream/internal/common"

	zerologlog "github.com/rs/zerolog/log"
)

type Options struct {
	Level      zerolog.Level
	TimeFormat string
	// NoColor disables ANSI colors, set automatically when no output is
	// a terminal stream.
	NoColor bool
}

// DefaultOptions picks the level and time format from CHUNKSTREAM_DEBUG
// and CHUNKSTREAM_TRACE.
func DefaultOptions() Options {
	switch {
	case common.IsTrace:
		return Options{Level: zerolog.TraceLevel, TimeFormat: "04:05.000"}
	case common.IsDebug:
		return Options{Level: zerolog.DebugLevel, TimeFormat: "01-02 15:04:05"}
	default:
		return Options{Level: zerolog.InfoLevel, TimeFormat: "01-02 15:04"}
	}
}

// continuationIndent is the width of the "<time> <LVL> " columns.
func (o Options) continuationIndent() string {
	return strings.Repeat(" ", len(o.TimeFormat)+5)
}

func init() {
	InitLogger(os.Stdout)
}

func indentContinuation(msg, indent string) string {
	if !strings.Contains(msg, "\n") {
		return msg
	}
	return strings.ReplaceAll(msg, "\n", "\n"+indent)
}

func isTerminalStream(w io.Writer) bool {
	return w == os.Stdout || w == os.Stderr
}

// New builds a console logger writing to every out.
func New(opts Options, out ...io.Writer) zerolog.Logger {
	noColor := opts.NoColor
	if !noColor {
		noColor = true
		for _, w := range out {
			if isTerminalStream(w) {
				noColor = false
				break
			}
		}
	}
	indent := opts.continuationIndent()
	writer := zerolog.ConsoleWriter{
		Out:        zerolog.MultiLevelWriter(out...),
		TimeFormat: opts.TimeFormat,
		NoColor:    noColor,
		FormatMessage: func(msgI any) string {
			msg, _ := msgI.(string)
			return indentContinuation(msg, indent)
		},
	}
	return zerolog.New(writer).Level(opts.Level).With().Timestamp().Logger()
}

// InitLogger replaces the global logger with DefaultOptions writing to out.
func InitLogger(out ...io.Writer) {
	InitLoggerWith(DefaultOptions(), out...)
}

func InitLoggerWith(opts Options, out ...io.Writer) {
	zerolog.TimeFieldFormat = opts.TimeFormat
	zerologlog.Logger = New(opts, out...)
}
