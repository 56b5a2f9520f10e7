package transport

import (
	"fmt"
	"sync"
	"time"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

// PCMMode is the direction of PCM flow relative to the Bluetooth link
// (spec.md §3).
type PCMMode int

const (
	// PCMModeSourceToClient carries bytes from Bluetooth to the local
	// PCM client (the transport is the PCM "source").
	PCMModeSourceToClient PCMMode = iota
	// PCMModeSinkFromClient carries bytes from the local PCM client to
	// Bluetooth (the transport is the PCM "sink").
	PCMModeSinkFromClient
)

// SampleFormat is the PCM sample encoding derived from the codec in
// spec.md §4.6.
type SampleFormat int

const (
	FormatS16LE SampleFormat = iota // 16-bit signed little-endian, default
	FormatS24in32LE                 // aptX-HD: 24-bit in a 32-bit container
	FormatS32LE                     // LDAC: 32-bit signed container
)

// BytesPerSample returns the container width of the format, in bytes.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatS24in32LE, FormatS32LE:
		return 4
	default:
		return 2
	}
}

// ChannelVolume is one channel's volume state (spec.md §3).
type ChannelVolume struct {
	// Level is in dB × 100, spec.md §6's user-visible unit.
	Level int16
	Muted bool
}

// PCMEndpoint is one direction of PCM flow (spec.md §3, §4.8). Its fd is
// only ever opened or closed while mu is held, satisfying testable
// property 4 in spec.md §8.
type PCMEndpoint struct {
	transport *Transport
	worker    *WorkerHandle // non-owning back-reference
	mode      PCMMode

	mu       sync.Mutex
	fd       int // -1 when not connected to a client
	format   SampleFormat
	channels int
	rate     int

	volume      [2]ChannelVolume
	softVolume  bool
	maxBTVolume int
	delay       int32 // hundredths of a millisecond, local PCM-side only

	syncedMu sync.Mutex
	synced   *sync.Cond

	ipcPath string
}

func newPCMEndpoint(t *Transport, mode PCMMode, maxBTVolume int) *PCMEndpoint {
	p := &PCMEndpoint{
		transport:   t,
		mode:        mode,
		fd:          -1,
		format:      FormatS16LE,
		maxBTVolume: maxBTVolume,
	}
	p.synced = sync.NewCond(&p.syncedMu)
	return p
}

// Mode returns the PCM's flow direction.
func (p *PCMEndpoint) Mode() PCMMode { return p.mode }

// FD returns the client-facing descriptor, or -1 if unconnected.
func (p *PCMEndpoint) FD() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fd
}

// Channels returns the channel count derived from the codec configuration.
func (p *PCMEndpoint) Channels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channels
}

// Format returns the sample format derived from the codec.
func (p *PCMEndpoint) Format() SampleFormat {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// Rate returns the sampling rate derived from the codec.
func (p *PCMEndpoint) Rate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// setParams installs the codec-derived format/channels/rate; called at
// transport creation and again whenever the codec changes
// (OnCodecReconfigured, SelectHFPCodec).
func (p *PCMEndpoint) setParams(format SampleFormat, channels, rate int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.format = format
	p.channels = channels
	p.rate = rate
}

// Open assigns the client-facing descriptor under the PCM lock, enforcing
// invariant 4 in spec.md §8.
func (p *PCMEndpoint) Open(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fd = fd
}

// CloseFD closes and clears the client-facing descriptor under the PCM
// lock. It is idempotent.
func (p *PCMEndpoint) CloseFD(closer func(fd int) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fd < 0 {
		return nil
	}
	fd := p.fd
	p.fd = -1
	if closer == nil {
		return nil
	}
	return closer(fd)
}

// Delay returns the local PCM-side delay component, in hundredths of a
// millisecond.
func (p *PCMEndpoint) Delay() int {
	return int(p.delay)
}

// SetDelay updates the local PCM-side delay component.
func (p *PCMEndpoint) SetDelay(delay int) {
	p.delay = int32(delay)
}

// Volume returns a copy of the two-channel volume state.
func (p *PCMEndpoint) Volume() [2]ChannelVolume {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// MaxBTVolume returns the peer-side raw volume ceiling this endpoint was
// created with (127 for A2DP, 15 for SCO), used to scale a dB level into
// the peer's raw volume range (spec.md §4.7).
func (p *PCMEndpoint) MaxBTVolume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxBTVolume
}

// SetVolume installs a channel's volume state.
func (p *PCMEndpoint) SetVolume(channel int, v ChannelVolume) error {
	if channel < 0 || channel > 1 {
		return txerrors.NewInvalidArgumentError("channel")
	}
	p.mu.Lock()
	p.volume[channel] = v
	p.mu.Unlock()
	return nil
}

// IPCPath returns the published PCM IPC path (spec.md §6).
func (p *PCMEndpoint) IPCPath() string { return p.ipcPath }

func (p *PCMEndpoint) publishPath(device string, profile Profile) {
	dir := "source"
	if p.mode == PCMModeSinkFromClient {
		dir = "sink"
	}
	p.ipcPath = fmt.Sprintf("%s/%s/%s", device, profile.ProfileTag(), dir)
}

// notifySynced wakes a goroutine blocked in Drain. The worker calls this
// once its output queue is empty, per spec.md §4.3.
func (p *PCMEndpoint) notifySynced() {
	p.syncedMu.Lock()
	p.synced.Broadcast()
	p.syncedMu.Unlock()
}

// Drain implements the synchronous PCM_SYNC signal described in spec.md
// §4.3: send PCM_SYNC, wait for the worker to report its output queue is
// empty, then sleep settle (the configurable that replaces the fixed
// 200ms "let the Bluetooth device consume its own buffer" delay) so the
// remote device's own buffer has a chance to drain too.
func (p *PCMEndpoint) Drain(settle time.Duration) error {
	worker := p.worker
	if worker == nil || !worker.Owned() {
		return txerrors.NewNoSuchThreadError("drain")
	}

	pipe := worker.Signal()
	if pipe == nil {
		return txerrors.NewNoSuchThreadError("drain")
	}

	p.syncedMu.Lock()
	if err := pipe.Send(SignalPCMSync); err != nil {
		p.syncedMu.Unlock()
		return err
	}
	p.synced.Wait()
	p.syncedMu.Unlock()

	time.Sleep(settle)
	return nil
}
