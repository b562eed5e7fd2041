package gperr

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func logError(level zerolog.Level, msg string, err error) {
	if err == nil {
		return
	}
	log.WithLevel(level).Msg(msg + "\n" + err.Error())
}

func LogError(msg string, err error) {
	logError(zerolog.ErrorLevel, msg, err)
}

// LogFatal logs err and exits the program.
func LogFatal(msg string, err error) {
	if err == nil {
		err = newError("<nil>")
	}
	log.Fatal().Msg(msg + "\n" + err.Error())
}
