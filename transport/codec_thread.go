package transport

import "context"

// CodecThreadFactory spawns the codec-specific encoder/decoder body that
// actually moves bytes between the Bluetooth fd and a PCM fd (spec.md §1
// names codec bodies as an external collaborator). StartEncoder,
// StartDecoder and StartWorkers use this to fill in WorkerHandle.spawn's
// fn argument without the transport
// core needing to know anything about a particular codec's framing.
type CodecThreadFactory interface {
	// NewEncoder returns the goroutine body for a worker that reads t's
	// playback PCM endpoint and writes encoded frames to btFD.
	NewEncoder(t *Transport) func(ctx context.Context, pipe *SignalPipe, ready func())

	// NewDecoder returns the goroutine body for a worker that reads
	// encoded frames from btFD and writes to t's capture PCM endpoint.
	NewDecoder(t *Transport) func(ctx context.Context, pipe *SignalPipe, ready func())
}

// StartEncoder spawns t's encoder worker via factory, a no-op if the
// slot is already owned (spec.md §4.3).
func (t *Transport) StartEncoder(factory CodecThreadFactory) error {
	return t.enc.spawn(factory.NewEncoder(t))
}

// StartDecoder spawns t's decoder worker via factory, a no-op if the
// slot is already owned. StartWorkers uses it only for an A2DP sink; an
// SCO transport runs in the encoder slot instead (SPEC_FULL.md §5.3).
func (t *Transport) StartDecoder(factory CodecThreadFactory) error {
	return t.dec.spawn(factory.NewDecoder(t))
}

// StartWorkers starts whichever of t's worker slots its profile actually
// drives: the encoder for an A2DP source (reads local PCM, writes the BT
// fd) or an HFP/HSP transport (reads local PCM for the speaker leg and,
// per SPEC_FULL.md §5.3, also drives the mic/capture leg); the decoder
// for an A2DP sink. It is the `start` callback A2DP's state machine
// passes to SetA2DPState(A2DPStateActive, ...).
func (t *Transport) StartWorkers(factory CodecThreadFactory) error {
	profile := t.Type().Profile
	switch {
	case profile == ProfileA2DPSource:
		return t.StartEncoder(factory)
	case profile == ProfileA2DPSink:
		return t.StartDecoder(factory)
	default: // SCO: spec.md §9 Open Question (a), resolved in SPEC_FULL.md §5.3
		return t.StartEncoder(factory)
	}
}

// loopbackCodecThreadFactory is a CodecThreadFactory standing in for a
// real SBC/aptX/LDAC codec body so worker-lifecycle and drain invariants
// can be exercised without one (spec.md §1's "codec encoder/decoder
// bodies" are out of scope for this module). Its bodies move no audio
// bytes: they only answer PCM_SYNC by waking the endpoint's Drain, and
// exit on PCM_DROP, on cancellation, or when the signal pipe fails.
type loopbackCodecThreadFactory struct{}

// NewLoopbackCodecThreadFactory returns the signal-only CodecThreadFactory
// used by tests.
func NewLoopbackCodecThreadFactory() CodecThreadFactory {
	return loopbackCodecThreadFactory{}
}

func (loopbackCodecThreadFactory) NewEncoder(t *Transport) func(context.Context, *SignalPipe, func()) {
	return func(ctx context.Context, pipe *SignalPipe, ready func()) {
		ready()
		for {
			sig, err := pipe.Recv()
			if err != nil {
				return
			}
			switch sig {
			case SignalPCMSync:
				t.playback.notifySynced()
			case SignalPCMDrop:
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

func (loopbackCodecThreadFactory) NewDecoder(t *Transport) func(context.Context, *SignalPipe, func()) {
	return func(ctx context.Context, pipe *SignalPipe, ready func()) {
		ready()
		for {
			sig, err := pipe.Recv()
			if err != nil {
				return
			}
			switch sig {
			case SignalPCMSync:
				t.capture.notifySynced()
			case SignalPCMDrop:
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}
