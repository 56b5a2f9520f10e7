package transport

import (
	"errors"
	"io"
	"os"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

// Signal is the control alphabet sent over a worker's SignalPipe
// (spec.md §4.3, §6). It is a single byte on the wire so the worker side
// can read it with one syscall alongside polling the Bluetooth fd.
type Signal byte

const (
	SignalPing Signal = iota
	SignalPCMOpen
	SignalPCMClose
	SignalPCMPause
	SignalPCMResume
	SignalPCMSync
	SignalPCMDrop

	// signalCodecExtBase is the first value in the codec-specific
	// extension range spec.md §4.3 reserves ("plus codec-specific
	// extensions"). Codec packages define their own signals starting
	// here; the transport core never interprets them.
	signalCodecExtBase Signal = 0x40
)

func (s Signal) String() string {
	switch s {
	case SignalPing:
		return "PING"
	case SignalPCMOpen:
		return "PCM_OPEN"
	case SignalPCMClose:
		return "PCM_CLOSE"
	case SignalPCMPause:
		return "PCM_PAUSE"
	case SignalPCMResume:
		return "PCM_RESUME"
	case SignalPCMSync:
		return "PCM_SYNC"
	case SignalPCMDrop:
		return "PCM_DROP"
	default:
		if s >= signalCodecExtBase {
			return "CODEC_EXT"
		}
		return "UNKNOWN"
	}
}

// SignalPipe is a one-shot-record channel from any goroutine to a worker,
// backed by a real OS pipe (spec.md §3 "Signal pipe") so the worker side
// can multiplex it with the Bluetooth fd in a single poll(2)/select loop
// when driven from cgo/codec code outside this package.
type SignalPipe struct {
	r *os.File
	w *os.File
}

// NewSignalPipe allocates the OS pipe backing a worker slot.
func NewSignalPipe() (*SignalPipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, txerrors.NewResourceExhaustionError("signal pipe", err)
	}
	return &SignalPipe{r: r, w: w}, nil
}

// ReadFD returns the file descriptor the worker should poll for
// readability alongside the Bluetooth socket.
func (p *SignalPipe) ReadFD() int {
	return int(p.r.Fd())
}

// Send writes a single signal record to the pipe. Per spec.md §4.3,
// pause/resume/drop sends return immediately once the byte is queued; the
// caller does not wait for the worker to act on it.
func (p *SignalPipe) Send(sig Signal) error {
	_, err := p.w.Write([]byte{byte(sig)})
	return err
}

// Recv reads one signal record from the pipe. On a short read, EOF, or
// any other error it returns SignalPing together with the error; what to
// do next is up to the worker body (the loopback bodies in
// codec_thread.go exit). Go's os.File already restarts interrupted
// reads, so no explicit EINTR loop is needed here.
func (p *SignalPipe) Recv() (Signal, error) {
	buf := make([]byte, 1)
	n, err := p.r.Read(buf)
	if err != nil || n != 1 {
		if errors.Is(err, io.EOF) {
			return SignalPing, err
		}
		return SignalPing, err
	}
	return Signal(buf[0]), nil
}

// Close releases both ends of the pipe. Closing the write end first
// unblocks a worker parked in a blocking read.
func (p *SignalPipe) Close() error {
	werr := p.w.Close()
	rerr := p.r.Close()
	return txerrors.AppendError(werr, rerr)
}
