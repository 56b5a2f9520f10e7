package transport

import (
	"errors"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

// a2dpAcquireReleaser implements AcquireReleaser over the BlueZ
// MediaTransport1 RPC (spec.md §4.2). It is grounded in ba-transport.c's
// transport_acquire_bt_a2dp/transport_release_bt_a2dp, translated from
// the original's manual refcount-guarded fd field to Transport's own
// btMu-guarded state.
type a2dpAcquireReleaser struct {
	client BlueZClient
}

// Acquire is idempotent: if t already holds an fd, it is returned as-is
// without a new RPC, matching the original's "acquire is a no-op while
// already acquired" behavior. Per spec.md §4.2/§6, it calls TryAcquire
// rather than Acquire while the A2DP state machine is PENDING: the
// transport is only being prepared (opening the fd early on IDLE ->
// PENDING), not told to start streaming, so the RPC that implicitly
// starts the stream must not be used.
func (a *a2dpAcquireReleaser) Acquire(t *Transport) (int, int, int, error) {
	if fd := t.BTFD(); fd >= 0 {
		read, write := t.MTU()
		return fd, read, write, nil
	}

	ctx, cancel := rpcContext()
	defer cancel()

	rpc := a.client.Acquire
	if t.State() == A2DPStatePending {
		rpc = a.client.TryAcquire
	}

	f, mtuRead, mtuWrite, err := rpc(ctx, t.RPCPath)
	if err != nil {
		return -1, 0, 0, err
	}
	return int(f.Fd()), int(mtuRead), int(mtuWrite), nil
}

// Release is idempotent and soft-fails the Release RPC: any RPC failure
// that wraps txerrors.ErrIO (which is how the D-Bus BlueZClient reports
// every failed call) is downgraded to nil without being logged, whatever
// its cause; peer-gone failures are not told apart from other RPC
// failures. Only a non-ErrIO RPC error or a failed local fd close is
// returned. Since Transport.Release always clears btFD regardless of the
// error this function returns, callers that only care about the fd being
// gone can ignore the return value.
func (a *a2dpAcquireReleaser) Release(t *Transport) error {
	fd := t.BTFD()
	if fd < 0 {
		return nil
	}

	ctx, cancel := rpcContext()
	defer cancel()

	err := a.client.Release(ctx, t.RPCPath)
	closeErr := closeFD(fd)

	if err != nil && !errors.Is(err, txerrors.ErrIO) {
		return err
	}
	// A release RPC failure here typically means the transport object is
	// already gone from BlueZ's own object tree because the peer
	// disconnected first; that is not fatal, only the local fd close is.
	return closeErr
}
