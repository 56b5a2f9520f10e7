package transport

import "github.com/bluez-audio/transportd/internal/logging"

// A2DPState is the A2DP transport state machine described in spec.md
// §4.4. SCO-profile transports do not use this state machine; their
// lifecycle is binary (acquired or not) and tracked solely by btFD.
type A2DPState int

const (
	// A2DPStateIdle is the initial state. Entering it from another state
	// cancels any running worker and releases the fd.
	A2DPStateIdle A2DPState = iota
	// A2DPStatePending is entered when BlueZ reports the transport is
	// configured but not yet playing (Acquire succeeded, no Start yet).
	A2DPStatePending
	// A2DPStateActive is entered once BlueZ reports the remote device
	// has started streaming; encoder/decoder workers are running.
	A2DPStateActive
)

func (s A2DPState) String() string {
	switch s {
	case A2DPStateIdle:
		return "IDLE"
	case A2DPStatePending:
		return "PENDING"
	case A2DPStateActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// State returns the current A2DP state machine state.
func (t *Transport) State() A2DPState {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.state
}

// SetA2DPState transitions the A2DP state machine, applying the side
// effects spec.md §4.4 assigns to each transition:
//
//   - IDLE -> PENDING: if the profile is A2DP-sink, invoke acquire so the
//     Bluetooth fd is opened early, before the remote device starts
//     streaming; an A2DP-source transport instead waits for the
//     client-driven PCM-open path to acquire it.
//   - PENDING -> ACTIVE / IDLE -> ACTIVE: call start, which picks the
//     worker (StartWorkers: encoder for an A2DP source, decoder for an
//     A2DP sink) and leaves an already-owned slot alone.
//   - ACTIVE -> IDLE / PENDING -> IDLE: cancel any running worker and
//     release the Bluetooth fd.
//
// Transitioning to the state the transport is already in is a no-op.
func (t *Transport) SetA2DPState(next A2DPState, start func(*Transport) error) error {
	t.stateMu.Lock()
	prev := t.state
	if prev == next {
		t.stateMu.Unlock()
		return nil
	}
	t.state = next
	t.stateMu.Unlock()

	log := logging.GetLogger("transport:state").WithComponent(t.RPCPath)

	switch {
	case next == A2DPStatePending && prev == A2DPStateIdle:
		if t.Type().Profile == ProfileA2DPSink {
			if _, err := t.Acquire(); err != nil {
				t.stateMu.Lock()
				t.state = prev
				t.stateMu.Unlock()
				return err
			}
		}
	case next == A2DPStateActive:
		if start != nil {
			if err := start(t); err != nil {
				t.stateMu.Lock()
				t.state = prev
				t.stateMu.Unlock()
				return err
			}
		}
	case next == A2DPStateIdle && prev != A2DPStateIdle:
		t.enc.cancelSlot(log)
		t.dec.cancelSlot(log)
		if err := t.Release(); err != nil {
			log.Warnf("release on transition to IDLE: %v", err)
		}
	}
	return nil
}
