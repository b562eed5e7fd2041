package task

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrProgramExiting = errors.New("program exiting")

var root = newRoot()

func newRoot() *Task {
	return newTask("root", nil)
}

func testCleanup() {
	root = newRoot()
}

// RootTask returns a new Task with the given name, derived from the root context.
func RootTask(name string, needFinish bool) *Task {
	return root.Subtask(name, needFinish)
}

func OnProgramExit(about string, fn func()) {
	root.OnFinished(about, fn)
}

// WaitExit waits for a signal to shutdown the program, and then waits for all tasks to finish, up to the given timeout.
func WaitExit(shutdownTimeout int) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sig)

	// wait for signal
	s := <-sig

	log.Info().Str("signal", s.String()).Msg("shutting down")
	if err := gracefulShutdown(time.Second * time.Duration(shutdownTimeout)); err != nil {
		log.Warn().Err(err).Msg("timed out waiting for tasks to finish")
	}
}

// gracefulShutdown finishes the root task and waits for it, up to the given timeout.
func gracefulShutdown(timeout time.Duration) error {
	r := root
	go r.Finish(ErrProgramExiting)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.Finished():
		return nil
	case <-timer.C:
		return context.DeadlineExceeded
	}
}
