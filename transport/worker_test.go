package transport

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluez-audio/transportd/internal/config"
)

type fakeAcquireReleaser struct {
	releaseCount int32
	acquireCount int32
}

func (f *fakeAcquireReleaser) Acquire(t *Transport) (int, int, int, error) {
	atomic.AddInt32(&f.acquireCount, 1)
	return 1, 128, 128, nil
}

func (f *fakeAcquireReleaser) Release(t *Transport) error {
	atomic.AddInt32(&f.releaseCount, 1)
	return nil
}

func newTestTransport(t *testing.T) (*Transport, *fakeAcquireReleaser) {
	t.Helper()
	far := &fakeAcquireReleaser{}
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr := newTransport(device, nil, "/test/transport0", Type{Profile: ProfileA2DPSource, Codec: CodecSBC}, far, 127)
	tr.refcount = 1 // creation-time reference, mirroring device.register
	return tr, far
}

func TestWorkerSpawnBecomesOwnedAndRunning(t *testing.T) {
	tr, _ := newTestTransport(t)

	err := tr.enc.spawn(func(ctx context.Context, pipe *SignalPipe, ready func()) {
		ready()
		<-ctx.Done()
	})
	require.NoError(t, err)

	tr.enc.waitReady()
	require.True(t, tr.enc.Owned())
	require.True(t, tr.enc.Running())

	log := testLogger()
	tr.enc.cancelSlot(log)
	require.False(t, tr.enc.Owned())
	require.False(t, tr.enc.Running())
}

func TestWorkerSpawnIsNoOpWhenAlreadyOwned(t *testing.T) {
	tr, _ := newTestTransport(t)

	require.NoError(t, tr.enc.spawn(func(ctx context.Context, pipe *SignalPipe, ready func()) {
		ready()
		<-ctx.Done()
	}))
	tr.enc.waitReady()

	var secondRan atomic.Bool
	require.NoError(t, tr.enc.spawn(func(ctx context.Context, pipe *SignalPipe, ready func()) {
		secondRan.Store(true)
		ready()
	}))

	time.Sleep(10 * time.Millisecond)
	require.False(t, secondRan.Load())

	tr.enc.cancelSlot(testLogger())
}

func TestWorkerCleanupReleasesAndUnrefs(t *testing.T) {
	tr, far := newTestTransport(t)

	done := make(chan struct{})
	require.NoError(t, tr.enc.spawn(func(ctx context.Context, pipe *SignalPipe, ready func()) {
		ready()
		close(done)
	}))

	<-done
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&far.releaseCount) == 1
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&tr.refcount) == 1
	}, time.Second, time.Millisecond)
}

func TestWorkerCancelSlotOnUnownedSlotIsNoOp(t *testing.T) {
	tr, _ := newTestTransport(t)
	tr.enc.cancelSlot(testLogger())
	require.False(t, tr.enc.Owned())
	require.Equal(t, config.MainThreadSentinel, tr.enc.id)
}

// TestWorkerCleanupSelfJoinDoesNotDeadlock exercises spec.md §4.3's "cancel
// is a no-op ... or is the current thread" guard directly: a worker whose
// own cleanup unref drives the transport's refcount to zero runs
// destroyOnce synchronously on its own goroutine, which calls cancelSlot
// on this same slot. Without the selfCleanup guard that call would block
// forever on <-done, since done only closes once cleanup (and therefore
// this whole call chain) returns.
func TestWorkerCleanupSelfJoinDoesNotDeadlock(t *testing.T) {
	far := &fakeAcquireReleaser{}
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr := newTransport(device, nil, "/test/selfjoin", Type{Profile: ProfileA2DPSource, Codec: CodecSBC}, far, 127)
	// No creation-time ref: spawn's own ref is the only one keeping this
	// transport alive, so the worker's exit drives refcount to zero.

	bodyRan := make(chan struct{})
	require.NoError(t, tr.enc.spawn(func(ctx context.Context, pipe *SignalPipe, ready func()) {
		ready()
		close(bodyRan)
	}))

	select {
	case <-bodyRan:
	case <-time.After(time.Second):
		t.Fatal("worker body did not run")
	}

	require.Eventually(t, func() bool {
		return tr.destroyed.Load()
	}, time.Second, time.Millisecond, "destroyOnce must complete without deadlocking on its own worker's join")
}
