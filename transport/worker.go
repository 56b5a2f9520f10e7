package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bluez-audio/transportd/internal/config"
	"github.com/bluez-audio/transportd/internal/logging"
)

// WorkerHandle owns the identity, signal pipe, and readiness/cancellation
// state of one worker goroutine slot (spec.md §3 "Worker thread handle").
// Each Transport has two slots, enc and dec.
type WorkerHandle struct {
	transport *Transport

	mu      sync.Mutex
	id      string // config.MainThreadSentinel when unowned
	signal  *SignalPipe
	cancel  context.CancelFunc
	running atomic.Bool
	ready   chan struct{}
	done    chan struct{}

	// selfCleanup is set for the duration of cleanup() running on the
	// worker's own goroutine. If that cleanup's unref drives the
	// transport's refcount to zero, destroyOnce runs synchronously and
	// calls cancelSlot on this same slot; without this guard it would
	// block forever on <-done, which close()s only after cleanup
	// returns (spec.md §4.3 "or is the current thread").
	selfCleanup atomic.Bool
}

// newWorkerHandle returns a handle in the "no worker" (sentinel) state.
func newWorkerHandle(t *Transport) *WorkerHandle {
	return &WorkerHandle{
		transport: t,
		id:        config.MainThreadSentinel,
	}
}

// Owned reports whether this slot currently holds a non-sentinel worker
// identity (spec.md §4.3 "start is a no-op if either slot already holds a
// non-sentinel thread id").
func (w *WorkerHandle) Owned() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id != config.MainThreadSentinel
}

// Running reports whether the worker has signalled ready and not yet
// exited.
func (w *WorkerHandle) Running() bool {
	return w.running.Load()
}

// Signal returns the slot's signal pipe, or nil if unowned.
func (w *WorkerHandle) Signal() *SignalPipe {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.signal
}

// spawn installs a new worker goroutine into the slot, taking one
// reference on the transport (spec.md §4.3: "the transport is ref'd") that
// is released by the cleanup handler run when fn returns. fn receives a
// context to observe for cooperative cancellation (the REDESIGN FLAG
// substitute for async pthread_cancel, SPEC_FULL.md §5.1) and the slot's
// SignalPipe, and must call ready() once its event loop is entered.
func (w *WorkerHandle) spawn(fn func(ctx context.Context, pipe *SignalPipe, ready func())) error {
	w.mu.Lock()
	if w.id != config.MainThreadSentinel {
		w.mu.Unlock()
		return nil
	}

	pipe, err := NewSignalPipe()
	if err != nil {
		w.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.id = uuid.NewString()
	w.signal = pipe
	w.cancel = cancel
	w.ready = make(chan struct{})
	w.done = make(chan struct{})
	id := w.id
	w.mu.Unlock()

	w.transport.ref()

	log := logging.GetLogger("transport:worker").WithComponent(id)

	go func() {
		defer close(w.done)
		defer w.cleanup(log)
		fn(ctx, pipe, func() {
			w.running.Store(true)
			close(w.ready)
		})
	}()

	return nil
}

// cleanup implements spec.md §4.3's mandated worker cleanup handler:
// acquire the PCM lock, release the Bluetooth fd, release the lock, drop
// the ref taken at spawn. Running it as a defer around fn, rather than as
// an OS-level pthread cleanup push, is the Go-idiomatic equivalent the
// cooperative-shutdown redesign calls for.
func (w *WorkerHandle) cleanup(log *logging.Logger) {
	w.selfCleanup.Store(true)
	defer w.selfCleanup.Store(false)

	w.running.Store(false)

	t := w.transport
	t.lockPCMs()
	if err := t.acquireRelease.Release(t); err != nil {
		log.Warnf("release during worker cleanup: %v", err)
	}
	t.unlockPCMs()

	t.unref()
}

// cancelSlot implements spec.md §4.3 cancellation: if the slot is empty or
// is being cancelled from within its own cleanup handler, this is a no-op
// (a call from the worker body itself is not detected and would wait on
// its own exit); otherwise it
// cancels the context, closes the signal pipe to unblock a pending read,
// waits for the goroutine to exit, and restores the sentinel. Errors
// joining the worker are logged, not fatal, per spec.md §7.
func (w *WorkerHandle) cancelSlot(log *logging.Logger) {
	w.mu.Lock()
	if w.id == config.MainThreadSentinel {
		w.mu.Unlock()
		return
	}
	if w.selfCleanup.Load() {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	pipe := w.signal
	done := w.done
	w.mu.Unlock()

	cancel()
	if pipe != nil {
		if err := pipe.Close(); err != nil {
			log.Warnf("close signal pipe during cancel: %v", err)
		}
	}
	if done != nil {
		<-done
	}

	w.mu.Lock()
	w.id = config.MainThreadSentinel
	w.signal = nil
	w.cancel = nil
	w.mu.Unlock()
	w.running.Store(false)
}

// waitReady blocks until the worker has signalled its event loop is
// entered, or the worker was never started.
func (w *WorkerHandle) waitReady() {
	w.mu.Lock()
	ready := w.ready
	w.mu.Unlock()
	if ready == nil {
		return
	}
	<-ready
}
