package transport

import (
	"context"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// countingBlueZClient records how many times each RPC fires, so idempotence
// can be checked by call count rather than just by return value.
type countingBlueZClient struct {
	acquireCalls    int32
	tryAcquireCalls int32
	releaseCalls    int32
}

func (c *countingBlueZClient) pipe() (*os.File, uint16, uint16, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, 0, 0, err
	}
	w.Close()
	return r, 672, 672, nil
}

func (c *countingBlueZClient) Acquire(ctx context.Context, rpcPath string) (*os.File, uint16, uint16, error) {
	atomic.AddInt32(&c.acquireCalls, 1)
	return c.pipe()
}

func (c *countingBlueZClient) TryAcquire(ctx context.Context, rpcPath string) (*os.File, uint16, uint16, error) {
	atomic.AddInt32(&c.tryAcquireCalls, 1)
	return c.pipe()
}

func (c *countingBlueZClient) Release(ctx context.Context, rpcPath string) error {
	atomic.AddInt32(&c.releaseCalls, 1)
	return nil
}

func (c *countingBlueZClient) SetConfiguration(ctx context.Context, rpcPath string, config []byte) error {
	return nil
}

func (c *countingBlueZClient) SetVolume(ctx context.Context, rpcPath string, volume uint16) error {
	return nil
}

func TestA2DPAcquireKeepAliveSkipsSecondRPC(t *testing.T) {
	client := &countingBlueZClient{}
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr, err := NewA2DPTransport(device, nil, "/test/keepalive", ProfileA2DPSource, CodecSBC, A2DPCodecConfiguration{}, client)
	require.NoError(t, err)

	fd1, err := tr.Acquire()
	require.NoError(t, err)
	fd2, err := tr.Acquire()
	require.NoError(t, err)

	require.Equal(t, fd1, fd2)
	require.Equal(t, int32(1), atomic.LoadInt32(&client.acquireCalls))
}

func TestA2DPAcquireUsesTryAcquireWhilePending(t *testing.T) {
	client := &countingBlueZClient{}
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr, err := NewA2DPTransport(device, nil, "/test/pendingacquire", ProfileA2DPSink, CodecSBC, A2DPCodecConfiguration{}, client)
	require.NoError(t, err)

	require.NoError(t, tr.SetA2DPState(A2DPStatePending, nil))

	require.Equal(t, int32(0), atomic.LoadInt32(&client.acquireCalls))
	require.Equal(t, int32(1), atomic.LoadInt32(&client.tryAcquireCalls))
}

func TestA2DPAcquireUsesAcquireOutsidePending(t *testing.T) {
	client := &countingBlueZClient{}
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr, err := NewA2DPTransport(device, nil, "/test/idleacquire", ProfileA2DPSource, CodecSBC, A2DPCodecConfiguration{}, client)
	require.NoError(t, err)

	_, err = tr.Acquire()
	require.NoError(t, err)

	require.Equal(t, int32(1), atomic.LoadInt32(&client.acquireCalls))
	require.Equal(t, int32(0), atomic.LoadInt32(&client.tryAcquireCalls))
}

func TestA2DPReleaseIsIdempotent(t *testing.T) {
	client := &countingBlueZClient{}
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr, err := NewA2DPTransport(device, nil, "/test/releaseidem", ProfileA2DPSource, CodecSBC, A2DPCodecConfiguration{}, client)
	require.NoError(t, err)

	_, err = tr.Acquire()
	require.NoError(t, err)

	require.NoError(t, tr.Release())
	require.Equal(t, -1, tr.BTFD())
	require.Equal(t, int32(1), atomic.LoadInt32(&client.releaseCalls))

	// A second release on an already-released transport must succeed
	// without re-issuing the RPC and must leave bt_fd = -1.
	require.NoError(t, tr.Release())
	require.Equal(t, -1, tr.BTFD())
	require.Equal(t, int32(1), atomic.LoadInt32(&client.releaseCalls))
}
