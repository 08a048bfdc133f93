// Package task is the thinnest possible cooperative-task layer over
// goroutines: a Runtime tracks every renewal task in flight so the host
// process can wait for them to settle on shutdown, without imposing any
// scheduling policy of its own. The order state machine's own suspension
// (parking on an HTTP step's result channel) needs nothing from this
// package; Runtime exists purely for lifecycle accounting.
package task

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Runtime tracks in-flight renewal tasks and the context used to signal
// them to stop early on process shutdown. Cancellation is never used to
// abort a renewal on its own; it only stops in-flight HTTP round trips
// when the host process itself is going down.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRuntime builds a Runtime whose tasks are cancelled when parent is
// done, or when Shutdown is called.
func NewRuntime(parent context.Context) *Runtime {
	ctx, cancel := context.WithCancel(parent)
	return &Runtime{ctx: ctx, cancel: cancel}
}

// Spawn launches fn on its own goroutine, tracked by the Runtime's
// WaitGroup. label is used only for logging if fn panics or returns an
// error.
func (rt *Runtime) Spawn(label string, fn func(context.Context) error) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{"task": label, "panic": r}).Error("task panicked")
			}
		}()
		if err := fn(rt.ctx); err != nil {
			log.WithFields(log.Fields{"task": label}).WithError(err).Warn("task exited with error")
		}
	}()
}

// Shutdown cancels every tracked task's context and blocks until all of
// them have returned.
func (rt *Runtime) Shutdown() {
	rt.cancel()
	rt.wg.Wait()
}

// Wait blocks until every spawned task has returned, without cancelling
// anything. Used by callers (tests, a one-shot CLI invocation) that want
// to wait for natural completion rather than force a shutdown.
func (rt *Runtime) Wait() {
	rt.wg.Wait()
}
