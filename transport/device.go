// Device registry and lock ordering.
//
// Lock order across this package, from outermost to innermost, must
// always be observed in this sequence whenever more than one is held at
// once: Device.mu (the registry table lock) -> Transport.typeMu ->
// Transport.btMu -> Transport.lockPCMs()/unlockPCMs() (playback then
// capture) -> PCMEndpoint.syncedMu. A goroutine must never acquire a
// lock out of this order, or acquire an outer lock while holding an
// inner one (spec.md §3 "Lock ordering").
package transport

import (
	"sync"

	"github.com/bluez-audio/transportd/internal/config"
	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

// Device owns the set of transports negotiated with one remote
// Bluetooth peer, keyed by the transport's BlueZ RPC object path
// (spec.md §3 "Device").
type Device struct {
	ctx *config.Context

	address string // Bluetooth address of the remote peer

	mu         sync.RWMutex
	transports map[string]*Transport
}

// NewDevice returns an empty registry for the peer at address.
func NewDevice(ctx *config.Context, address string) *Device {
	return &Device{
		ctx:        ctx,
		address:    address,
		transports: make(map[string]*Transport),
	}
}

// Address returns the remote peer's Bluetooth address.
func (d *Device) Address() string { return d.address }

// register adds a freshly constructed transport to the table and
// arranges for it to remove itself on destruction. It takes the table's
// own implicit reference: one ref is attached to the table entry, and
// unref'd by the onDestroy hook as that transport is removed.
func (d *Device) register(t *Transport) {
	t.ref()
	t.onDestroy = func(dead *Transport) {
		d.mu.Lock()
		delete(d.transports, dead.RPCPath)
		d.mu.Unlock()
	}
	d.mu.Lock()
	d.transports[t.RPCPath] = t
	d.mu.Unlock()
}

// AddA2DPTransport constructs, registers, and returns a new A2DP
// transport for this device.
func (d *Device) AddA2DPTransport(rpcPath string, profile Profile, codec CodecID, config A2DPCodecConfiguration, bluez BlueZClient) (*Transport, error) {
	t, err := NewA2DPTransport(d, d.ctx, rpcPath, profile, codec, config, bluez)
	if err != nil {
		return nil, err
	}
	d.register(t)
	return t, nil
}

// AddSCOTransport constructs, registers, and returns a new SCO-carried
// (HFP/HSP) transport for this device.
func (d *Device) AddSCOTransport(rpcPath string, profile Profile, codec CodecID, adapterAddr string, supportsESCO bool, rfcomm RFCOMMSession) (*Transport, error) {
	t, err := NewSCOTransport(d, d.ctx, rpcPath, profile, codec, adapterAddr, supportsESCO, rfcomm)
	if err != nil {
		return nil, err
	}
	d.register(t)
	return t, nil
}

// Lookup returns the transport registered at rpcPath, taking a
// reference on behalf of the caller. Callers must call Transport.Destroy
// (or unref through some other owned reference) once done, per spec.md
// §3 refcounting.
func (d *Device) Lookup(rpcPath string) (*Transport, error) {
	d.mu.RLock()
	t, ok := d.transports[rpcPath]
	d.mu.RUnlock()
	if !ok {
		return nil, txerrors.NewInvalidArgumentError("rpcPath")
	}
	t.ref()
	return t, nil
}

// Detach removes rpcPath from the registry without waiting for the
// transport's own refcount to drop, and releases the registry's
// reference. Used when BlueZ reports the transport object has been
// removed out from under an in-flight session (spec.md §4.2 "peer
// disconnect during acquire").
func (d *Device) Detach(rpcPath string) {
	d.mu.Lock()
	t, ok := d.transports[rpcPath]
	if ok {
		delete(d.transports, rpcPath)
	}
	d.mu.Unlock()
	if ok {
		t.unref()
	}
}

// Transports returns a snapshot slice of all currently registered
// transports, taking a reference on each; callers must Destroy/unref
// every entry once done.
func (d *Device) Transports() []*Transport {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Transport, 0, len(d.transports))
	for _, t := range d.transports {
		t.ref()
		out = append(out, t)
	}
	return out
}

// Len reports the number of currently registered transports.
func (d *Device) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.transports)
}
