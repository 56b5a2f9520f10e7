//go:build linux

package transport

// scoAcquireReleaser implements AcquireReleaser over a raw kernel SCO
// socket (spec.md §4.2), grounded in ba-transport.c's
// transport_acquire_bt_sco/transport_release_bt_sco and in the
// HCI-socket adaptor pattern from other_examples/kirbo-ble.
type scoAcquireReleaser struct {
	adapterAddr string
	peerAddr    string
}

// Acquire is idempotent like its A2DP counterpart. Unlike A2DP there is
// no BlueZ RPC involved: HFP/HSP audio routing happens entirely between
// the kernel and this process once the RFCOMM control channel has
// negotiated the call, so acquiring means connecting the socket
// ourselves (SPEC_FULL.md §5).
func (s *scoAcquireReleaser) Acquire(t *Transport) (int, int, int, error) {
	if fd := t.BTFD(); fd >= 0 {
		read, write := t.MTU()
		return fd, read, write, nil
	}

	if _, err := findAdapterDevID(s.adapterAddr); err != nil {
		return -1, 0, 0, err
	}

	fd, err := connectSCO(s.peerAddr)
	if err != nil {
		return -1, 0, 0, err
	}
	read, write := scoMTU()
	return fd, read, write, nil
}

// Release closes the SCO socket fd. SCO sockets have no analogous
// "peer already released it" RPC failure mode to soft-fail; closing an
// already-closed fd is simply a no-op at the Transport level since btFD
// is cleared unconditionally by the caller.
func (s *scoAcquireReleaser) Release(t *Transport) error {
	fd := t.BTFD()
	if fd < 0 {
		return nil
	}
	return closeFD(fd)
}
