package transport

import (
	"context"
	"os"
	"time"

	"github.com/godbus/dbus/v5"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

const bluezObjectName = "org.bluez"

// BlueZClient is the subset of the org.bluez.MediaTransport1 D-Bus
// interface a2dp_acquire.go needs (spec.md §6 "BlueZ client"). Splitting
// it out as an interface, rather than calling *dbus.Conn directly,
// follows the teacher's pattern of wrapping godbus calls behind a narrow
// interface so tests can substitute a fake.
type BlueZClient interface {
	// Acquire requests exclusive use of the transport fd. BlueZ returns
	// the socket fd plus the negotiated read/write MTU.
	Acquire(ctx context.Context, rpcPath string) (fd *os.File, mtuRead, mtuWrite uint16, err error)

	// TryAcquire is identical to Acquire but does not implicitly start
	// the stream; used when the transport is only being prepared, not
	// started (spec.md §4.2).
	TryAcquire(ctx context.Context, rpcPath string) (fd *os.File, mtuRead, mtuWrite uint16, err error)

	// Release tells BlueZ this process is done with the transport fd.
	Release(ctx context.Context, rpcPath string) error

	// SetConfiguration pushes a new codec configuration blob, used by
	// the A2DP codec-select path (spec.md §4.5).
	SetConfiguration(ctx context.Context, rpcPath string, config []byte) error

	// SetVolume sets the Volume property (uint16, 0..127) on the
	// transport path via org.freedesktop.DBus.Properties.Set, used by
	// the A2DP volume_update path (spec.md §4.7, §6).
	SetVolume(ctx context.Context, rpcPath string, volume uint16) error
}

// dbusBlueZClient is the production BlueZClient, grounded in the
// obj.CallWithContext(ctx, iface+".Method", 0, args...) pattern used
// throughout the teacher's bluetooth/linux.go.
type dbusBlueZClient struct {
	conn *dbus.Conn
}

// NewBlueZClient wraps an established system-bus connection.
func NewBlueZClient(conn *dbus.Conn) BlueZClient {
	return &dbusBlueZClient{conn: conn}
}

func (c *dbusBlueZClient) object(rpcPath string) dbus.BusObject {
	return c.conn.Object(bluezObjectName, dbus.ObjectPath(rpcPath))
}

func (c *dbusBlueZClient) acquire(ctx context.Context, rpcPath, method string) (*os.File, uint16, uint16, error) {
	var fd dbus.UnixFD
	var mtuRead, mtuWrite uint16

	call := c.object(rpcPath).CallWithContext(ctx, "org.bluez.MediaTransport1."+method, 0)
	if call.Err != nil {
		return nil, 0, 0, txerrors.NewIOError(method, call.Err)
	}
	if err := call.Store(&fd, &mtuRead, &mtuWrite); err != nil {
		return nil, 0, 0, txerrors.NewIOError(method, err)
	}

	f := os.NewFile(uintptr(fd), rpcPath)
	return f, mtuRead, mtuWrite, nil
}

func (c *dbusBlueZClient) Acquire(ctx context.Context, rpcPath string) (*os.File, uint16, uint16, error) {
	return c.acquire(ctx, rpcPath, "Acquire")
}

func (c *dbusBlueZClient) TryAcquire(ctx context.Context, rpcPath string) (*os.File, uint16, uint16, error) {
	return c.acquire(ctx, rpcPath, "TryAcquire")
}

func (c *dbusBlueZClient) Release(ctx context.Context, rpcPath string) error {
	call := c.object(rpcPath).CallWithContext(ctx, "org.bluez.MediaTransport1.Release", 0)
	if call.Err != nil {
		return txerrors.NewIOError("Release", call.Err)
	}
	return nil
}

func (c *dbusBlueZClient) SetConfiguration(ctx context.Context, rpcPath string, config []byte) error {
	call := c.object(rpcPath).CallWithContext(ctx, "org.bluez.MediaTransport1.SetConfiguration", 0, config)
	if call.Err != nil {
		return txerrors.NewIOError("SetConfiguration", call.Err)
	}
	return nil
}

func (c *dbusBlueZClient) SetVolume(ctx context.Context, rpcPath string, volume uint16) error {
	call := c.object(rpcPath).CallWithContext(ctx, "org.freedesktop.DBus.Properties.Set", 0,
		"org.bluez.MediaTransport1", "Volume", dbus.MakeVariant(volume))
	if call.Err != nil {
		return txerrors.NewIOError("SetVolume", call.Err)
	}
	return nil
}

// rpcTimeout bounds every BlueZ RPC issued by the acquire/release path;
// a hung bluetoothd must not hang a worker's cleanup handler indefinitely
// (spec.md §7 "external RPCs are bounded").
const rpcTimeout = 5 * time.Second

func rpcContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rpcTimeout)
}

// closeFD closes a raw fd obtained from connectSCO or a BlueZ Acquire
// reply, via os.NewFile so the close goes through the same path on every
// platform the dbus-acquired fd already does.
func closeFD(fd int) error {
	if err := os.NewFile(uintptr(fd), "").Close(); err != nil {
		return txerrors.NewIOError("close fd", err)
	}
	return nil
}
