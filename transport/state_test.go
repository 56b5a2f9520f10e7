package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestA2DPStateTransitionToActiveStartsWorker(t *testing.T) {
	tr, _ := newTestTransport(t)
	require.Equal(t, A2DPStateIdle, tr.State())

	var started bool
	err := tr.SetA2DPState(A2DPStateActive, func(t *Transport) error {
		started = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, started)
	require.Equal(t, A2DPStateActive, tr.State())
}

func TestA2DPStateIdleToPendingAcquiresOnceForSink(t *testing.T) {
	tr, far := newTestTransport(t)
	tr.setType(Type{Profile: ProfileA2DPSink, Codec: CodecSBC})

	require.NoError(t, tr.SetA2DPState(A2DPStatePending, nil))

	require.Equal(t, A2DPStatePending, tr.State())
	require.Equal(t, int32(1), far.acquireCount)
	require.GreaterOrEqual(t, tr.BTFD(), 0)
}

func TestA2DPStateIdleToPendingDoesNotAcquireForSource(t *testing.T) {
	tr, far := newTestTransport(t)
	require.Equal(t, ProfileA2DPSource, tr.Type().Profile)

	require.NoError(t, tr.SetA2DPState(A2DPStatePending, nil))

	require.Equal(t, A2DPStatePending, tr.State())
	require.Equal(t, int32(0), far.acquireCount)
}

func TestA2DPStateTransitionToIdleReleasesAndCancels(t *testing.T) {
	tr, far := newTestTransport(t)
	require.NoError(t, tr.SetA2DPState(A2DPStatePending, nil))
	require.NoError(t, tr.SetA2DPState(A2DPStateIdle, nil))
	require.Equal(t, A2DPStateIdle, tr.State())
	require.GreaterOrEqual(t, far.releaseCount, int32(1))
}

func TestA2DPStateSameStateIsNoOp(t *testing.T) {
	tr, _ := newTestTransport(t)
	calls := 0
	startFn := func(t *Transport) error { calls++; return nil }

	require.NoError(t, tr.SetA2DPState(A2DPStateIdle, startFn))
	require.Equal(t, 0, calls)
}

func TestA2DPStateStartFailureRollsBack(t *testing.T) {
	tr, _ := newTestTransport(t)
	err := tr.SetA2DPState(A2DPStateActive, func(t *Transport) error {
		return errBoom
	})
	require.Error(t, err)
	require.Equal(t, A2DPStateIdle, tr.State())
}
