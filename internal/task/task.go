// Package task controls the lifetime of long running objects.
//
// Tasks form a tree rooted at a process-wide root task. Finishing a task
// cancels its context, finishes all of its subtasks and then runs its
// callbacks. WaitExit finishes the root task on SIGINT / SIGTERM / SIGHUP.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

type (
	Callback struct {
		fn           func()
		about        string
		waitChildren bool
	}
	// Task controls objects' lifetime.
	//
	// Use Task.Finish to stop all subtasks of the Task.
	Task struct {
		name string

		parent    *Task
		children  map[*Task]struct{}
		callbacks map[*Callback]struct{}

		ctx    context.Context
		cancel context.CancelCauseFunc

		finishCalled atomic.Bool
		done         chan struct{}
		mu           sync.Mutex
	}
	Parent interface {
		Context() context.Context
		Subtask(name string, needFinish bool) *Task
		Name() string
		Finish(reason any)
		OnCancel(about string, fn func())
	}
)

func newTask(name string, parent *Task) *Task {
	base := context.Background()
	if parent != nil {
		base = parent.ctx
	}
	ctx, cancel := context.WithCancelCause(base)
	return &Task{
		name:   name,
		parent: parent,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (t *Task) Context() context.Context {
	return t.ctx
}

// FinishCause returns the reason / error that caused the task to be finished.
func (t *Task) FinishCause() error {
	cause := context.Cause(t.ctx)
	if cause == nil || errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

// OnFinished calls fn when the task is canceled and all subtasks are finished.
func (t *Task) OnFinished(about string, fn func()) {
	t.addCallback(about, fn, true)
}

// OnCancel calls fn when the task is canceled.
func (t *Task) OnCancel(about string, fn func()) {
	t.addCallback(about, fn, false)
}

// Finish cancels the task and all subtasks, waits for them to finish,
// then runs the callbacks, with the given reason (if any).
//
// Finish is safe to call multiple times, later calls wait for the first one.
func (t *Task) Finish(reason any) {
	if t.finishCalled.Swap(true) {
		<-t.done
		return
	}

	t.cancel(fmtCause(reason))
	t.finishChildren()
	t.runCallbacks()
	close(t.done)

	if t.parent != nil {
		t.parent.removeChild(t)
	}
	logFinished(t)
}

// Finished returns a channel closed after Finish has returned.
func (t *Task) Finished() <-chan struct{} {
	return t.done
}

// Subtask returns a new subtask with the given name, derived from the parent's context.
//
// If needFinish is true, the parent finishes the subtask (and waits for it)
// when it is finished itself.
func (t *Task) Subtask(name string, needFinish bool) *Task {
	child := newTask(name, t)
	if needFinish {
		t.addChild(child)
	}
	logStarted(child)
	return child
}

// Name returns the name of the task without parent names.
func (t *Task) Name() string {
	return t.name
}

// String returns the full name of the task.
func (t *Task) String() string {
	if t.parent != nil && t.parent.parent != nil {
		return t.parent.String() + "." + t.name
	}
	return t.name
}

func (t *Task) addCallback(about string, fn func(), waitChildren bool) {
	t.mu.Lock()
	if t.finishCalled.Load() {
		t.mu.Unlock()
		fn()
		return
	}
	defer t.mu.Unlock()
	if t.callbacks == nil {
		t.callbacks = make(map[*Callback]struct{})
	}
	t.callbacks[&Callback{fn: fn, about: about, waitChildren: waitChildren}] = struct{}{}
}

func (t *Task) addChild(child *Task) {
	t.mu.Lock()
	if t.finishCalled.Load() {
		t.mu.Unlock()
		child.Finish(t.FinishCause())
		return
	}
	defer t.mu.Unlock()
	if t.children == nil {
		t.children = make(map[*Task]struct{})
	}
	t.children[child] = struct{}{}
}

func (t *Task) removeChild(child *Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.children, child)
}

func (t *Task) finishChildren() {
	t.mu.Lock()
	children := make([]*Task, 0, len(t.children))
	for child := range t.children {
		children = append(children, child)
	}
	t.mu.Unlock()

	cause := t.FinishCause()
	var wg sync.WaitGroup
	for _, child := range children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child.Finish(cause)
		}()
	}
	wg.Wait()
}

func (t *Task) runCallbacks() {
	t.mu.Lock()
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}

	// children are already finished here, callbacks that does not
	// need to wait run first anyway to keep OnCancel before OnFinished
	var wg sync.WaitGroup
	for _, waitChildren := range []bool{false, true} {
		for c := range callbacks {
			if c.waitChildren != waitChildren {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				invokeWithRecover(c)
			}()
		}
		wg.Wait()
	}
}

func invokeWithRecover(cb *Callback) {
	defer func() {
		if err := recover(); err != nil {
			log.Error().Err(fmtCause(err)).Str("callback", cb.about).Msg("panic")
		}
	}()
	cb.fn()
}

func fmtCause(cause any) error {
	switch cause := cause.(type) {
	case nil:
		return nil
	case error:
		return cause
	case string:
		return errors.New(cause)
	default:
		return fmt.Errorf("%v", cause)
	}
}

func logStarted(t *Task) {
	log.Trace().Msg("task " + t.String() + " started")
}

func logFinished(t *Task) {
	log.Trace().Msg("task " + t.String() + " finished")
}
