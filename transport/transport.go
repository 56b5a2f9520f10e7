package transport

import (
	"sync"
	"sync/atomic"

	"github.com/bluez-audio/transportd/internal/config"
	txerrors "github.com/bluez-audio/transportd/internal/errors"
	"github.com/bluez-audio/transportd/internal/logging"
)

// Transport is one BlueZ-negotiated audio session: the fd to the remote
// device, its codec/profile type, its PCM endpoints, and the worker
// goroutines that move bytes across the fd (spec.md §3 "Transport").
// Fields are grouped by the lock that guards them, mirroring the lock
// order documented at the top of device.go.
type Transport struct {
	device *Device
	ctx    *config.Context

	// RPCPath is the BlueZ object path identifying this transport
	// (e.g. "/org/bluez/hciX/devYY/fdZ"); stable for the transport's
	// lifetime and used as the device-registry key (spec.md §3 §6).
	RPCPath string

	acquireRelease AcquireReleaser

	typeMu     sync.RWMutex
	typ        Type
	a2dpConfig A2DPCodecConfiguration // guarded by typeMu; A2DP only

	refcount int32 // accessed only via ref/unref, atomically

	btMu    sync.Mutex
	btFD    int // -1 when not acquired
	mtuRead int
	mtuWrite int

	// The two PCM endpoints are always locked playback before capture,
	// the order newTransport creates them in. Taking both together must
	// always go through lockPCMs/unlockPCMs.
	playback *PCMEndpoint
	capture  *PCMEndpoint

	enc *WorkerHandle
	dec *WorkerHandle

	stateMu sync.Mutex
	state   A2DPState

	// rfcomm is the AT-command control channel used by SCO/HFP codec
	// selection (spec.md §4.5); nil for A2DP transports and for SCO
	// transports created without one.
	rfcomm RFCOMMSession

	// codecSwitchMu serializes the HFP in-band codec-switch sequence
	// (spec.md §5 "codec_selection_completed mutex"). SelectHFPCodec
	// holds it for the whole switch, so it is taken before, and held
	// across, the combined PCM lock.
	codecSwitchMu sync.Mutex

	// registrar is the PCM IPC surface this transport was published to,
	// remembered so Destroy can withdraw both endpoints without the
	// caller having to track it separately (spec.md §4.1 Destroy step a).
	registrar PCMRegistrar

	destroyed      atomic.Bool
	destroyStarted atomic.Bool
	onDestroy      func(*Transport)
}

func newTransport(device *Device, ctx *config.Context, rpcPath string, typ Type, acquireRelease AcquireReleaser, maxBTVolume int) *Transport {
	t := &Transport{
		device:         device,
		ctx:            ctx,
		RPCPath:        rpcPath,
		acquireRelease: acquireRelease,
		typ:            typ,
		btFD:           -1,
		state:          A2DPStateIdle,
	}
	t.playback = newPCMEndpoint(t, PCMModeSourceToClient, maxBTVolume)
	t.capture = newPCMEndpoint(t, PCMModeSinkFromClient, maxBTVolume)
	t.enc = newWorkerHandle(t)
	t.dec = newWorkerHandle(t)
	t.playback.worker = t.enc
	t.capture.worker = t.dec
	return t
}

// NewA2DPTransport constructs a Transport for an A2DP source or sink
// session, acquired/released via the BlueZ MediaTransport1 RPC
// (spec.md §4.1, §4.2). config is the codec configuration blob BlueZ
// negotiated for the stream endpoint; its channel-mode/frequency byte
// narrows the codec table's default PCM parameters (spec.md §4.6).
func NewA2DPTransport(device *Device, ctx *config.Context, rpcPath string, profile Profile, codec CodecID, config A2DPCodecConfiguration, bluez BlueZClient) (*Transport, error) {
	if !profile.IsA2DP() {
		return nil, txerrors.NewInvalidArgumentError("profile")
	}
	t := newTransport(device, ctx, rpcPath, Type{Profile: profile, Codec: codec}, &a2dpAcquireReleaser{client: bluez}, 127)
	t.a2dpConfig = config
	if ctx != nil {
		t.playback.SetSoftVolume(ctx.Policy.A2DPSoftVolumePreference)
		t.capture.SetSoftVolume(ctx.Policy.A2DPSoftVolumePreference)
	}
	params, err := resolveCodecParams(codec)
	if err != nil {
		return nil, err
	}
	applyCodecParams(t, params, config)
	t.playback.publishPath(device.Address(), profile)
	return t, nil
}

// NewSCOTransport constructs a Transport for an HFP or HSP session,
// acquired/released via a raw SCO socket (spec.md §4.1, §4.2). Per
// spec.md §4.1, the requested codec is forced to CVSD if the profile is
// HSP (which has no in-band codec-negotiation AT command) or the adapter
// lacks eSCO support (reported by the caller via supportsESCO, since
// only an eSCO link can carry mSBC's wider bandwidth). rfcomm, if
// non-nil, is the AT-command channel SelectHFPCodec drives for this
// transport's codec switches.
func NewSCOTransport(device *Device, ctx *config.Context, rpcPath string, profile Profile, codec CodecID, adapterAddr string, supportsESCO bool, rfcomm RFCOMMSession) (*Transport, error) {
	if !profile.IsSCO() {
		return nil, txerrors.NewInvalidArgumentError("profile")
	}
	if profile.IsHSP() || !supportsESCO {
		codec = CodecCVSD
	}
	t := newTransport(device, ctx, rpcPath, Type{Profile: profile, Codec: codec}, &scoAcquireReleaser{adapterAddr: adapterAddr, peerAddr: device.Address()}, 15)
	t.rfcomm = rfcomm
	params, err := resolveCodecParams(codec)
	if err != nil {
		return nil, err
	}
	applyCodecParams(t, params, A2DPCodecConfiguration{})
	t.playback.publishPath(device.Address(), profile)
	t.capture.publishPath(device.Address(), profile)
	return t, nil
}

// Type returns a snapshot of the transport's current {profile, codec}.
func (t *Transport) Type() Type {
	t.typeMu.RLock()
	defer t.typeMu.RUnlock()
	return t.typ
}

func (t *Transport) setType(typ Type) {
	t.typeMu.Lock()
	t.typ = typ
	t.typeMu.Unlock()
}

// a2dpConfiguration returns a snapshot of the last codec configuration
// blob applied to this transport, used by SelectA2DPCodec's
// already-equal short-circuit (spec.md §4.5).
func (t *Transport) a2dpConfiguration() A2DPCodecConfiguration {
	t.typeMu.RLock()
	defer t.typeMu.RUnlock()
	return t.a2dpConfig
}

// setTypeAndConfig atomically updates both the {profile, codec} pair and
// the remembered configuration blob under a single typeMu critical
// section, so a concurrent a2dpConfiguration() reader never observes a
// codec paired with the previous configuration or vice versa.
func (t *Transport) setTypeAndConfig(typ Type, config A2DPCodecConfiguration) {
	t.typeMu.Lock()
	t.typ = typ
	t.a2dpConfig = config
	t.typeMu.Unlock()
}

// SetRegistrar remembers the PCM IPC surface t was published to, so
// Destroy can withdraw both endpoints without the caller separately
// tracking which registrar was used (spec.md §4.1 Destroy step a).
func (t *Transport) SetRegistrar(registrar PCMRegistrar) {
	t.registrar = registrar
}

// Playback returns the source-to-client PCM endpoint.
func (t *Transport) Playback() *PCMEndpoint { return t.playback }

// Capture returns the client-to-sink PCM endpoint. For A2DP source/sink
// profiles this endpoint exists but is never driven with audio data;
// callers that need to distinguish should consult Type().Profile.
func (t *Transport) Capture() *PCMEndpoint { return t.capture }

// Encoder returns the worker slot that reads local PCM and writes to the
// Bluetooth fd.
func (t *Transport) Encoder() *WorkerHandle { return t.enc }

// Decoder returns the worker slot that reads the Bluetooth fd and writes
// local PCM.
func (t *Transport) Decoder() *WorkerHandle { return t.dec }

// lockPCMs acquires both PCM endpoint locks in the fixed order
// (playback, then capture) required to avoid deadlock against a second
// goroutine doing the same (spec.md §3 "combined PCM lock").
func (t *Transport) lockPCMs() {
	t.playback.mu.Lock()
	t.capture.mu.Lock()
}

// unlockPCMs releases both PCM endpoint locks in the reverse order.
func (t *Transport) unlockPCMs() {
	t.capture.mu.Unlock()
	t.playback.mu.Unlock()
}

// ref increments the transport's reference count (spec.md §3
// "Refcounting"). Each active worker goroutine and each external holder
// of a Transport pointer obtained via Device.Lookup or Device.Transports
// must hold one ref.
func (t *Transport) ref() {
	atomic.AddInt32(&t.refcount, 1)
}

// unref decrements the reference count and, on reaching zero, runs the
// one-time destroy sequence (spec.md §3 "destroyed once its refcount
// reaches zero").
func (t *Transport) unref() {
	if atomic.AddInt32(&t.refcount, -1) == 0 {
		t.destroyOnce()
	}
}

// destroyOnce tears down any remaining worker goroutines, releases the
// Bluetooth fd, and notifies the owning device so the transport can be
// removed from the registry. It runs at most once regardless of how many
// unref races reach refcount zero, guarded by destroyed.
func (t *Transport) destroyOnce() {
	if !t.destroyed.CompareAndSwap(false, true) {
		return
	}

	log := logging.GetLogger("transport").WithComponent(t.RPCPath)

	t.enc.cancelSlot(log)
	t.dec.cancelSlot(log)

	t.lockPCMs()
	if err := t.acquireRelease.Release(t); err != nil {
		log.Warnf("release during destroy: %v", err)
	}
	t.unlockPCMs()

	if t.onDestroy != nil {
		t.onDestroy(t)
	}
}

// Destroy tears the transport down explicitly rather than waiting for
// every other reference holder to unref naturally (spec.md §4.1
// Destroy, §8 testable property 6: "destroying a transport with active
// worker threads joins both before returning... and never double-frees").
// A transport with an active worker holds a self-ref taken at spawn
// (worker.go), so unref alone would never reach zero while a worker is
// running; Destroy instead force-cancels both worker slots first,
// joining them and so releasing their refs, deregisters the PCM
// endpoints from the IPC surface, tears down the RFCOMM control channel
// for a SCO transport, and only then drops its own reference. The
// force-cancel/withdraw/rfcomm-close sequence runs at most once
// (destroyStarted), but every call still drops its own reference,
// matching callers (e.g. cmd/transportd) that call Destroy once per
// reference they hold rather than once overall.
func (t *Transport) Destroy() {
	if t.destroyStarted.CompareAndSwap(false, true) {
		log := logging.GetLogger("transport").WithComponent(t.RPCPath)

		t.enc.cancelSlot(log)
		t.dec.cancelSlot(log)

		if t.registrar != nil {
			if err := t.Withdraw(t.registrar); err != nil {
				log.Warnf("withdraw PCMs during destroy: %v", err)
			}
		}
		if t.rfcomm != nil {
			if err := t.rfcomm.Close(); err != nil {
				log.Warnf("close rfcomm during destroy: %v", err)
			}
			t.rfcomm = nil
		}
	}
	t.unref()
}

// BTFD returns the current Bluetooth-facing fd, or -1 if not acquired.
func (t *Transport) BTFD() int {
	t.btMu.Lock()
	defer t.btMu.Unlock()
	return t.btFD
}

// MTU returns the negotiated read/write MTU for the acquired link.
func (t *Transport) MTU() (read, write int) {
	t.btMu.Lock()
	defer t.btMu.Unlock()
	return t.mtuRead, t.mtuWrite
}

func (t *Transport) setBTFD(fd, mtuRead, mtuWrite int) {
	t.btMu.Lock()
	t.btFD = fd
	t.mtuRead = mtuRead
	t.mtuWrite = mtuWrite
	t.btMu.Unlock()
}

func (t *Transport) clearBTFD() {
	t.btMu.Lock()
	t.btFD = -1
	t.mtuRead = 0
	t.mtuWrite = 0
	t.btMu.Unlock()
}

// Acquire obtains the Bluetooth-facing fd via the profile-specific
// strategy, idempotently (spec.md §4.2).
func (t *Transport) Acquire() (int, error) {
	fd, mtuRead, mtuWrite, err := t.acquireRelease.Acquire(t)
	if err != nil {
		return -1, err
	}
	t.setBTFD(fd, mtuRead, mtuWrite)
	return fd, nil
}

// Release tears down the Bluetooth-facing fd via the profile-specific
// strategy, idempotently (spec.md §4.2).
func (t *Transport) Release() error {
	err := t.acquireRelease.Release(t)
	t.clearBTFD()
	return err
}
