package transport

// AcquireReleaser abstracts the profile-specific transport fd lifecycle
// (spec.md §4.2): A2DP acquires/releases a Bluetooth socket fd via the
// BlueZ MediaTransport1 RPC, SCO acquires/releases via a raw HCI/SCO
// socket. Transport delegates to one implementation chosen at
// construction time, so the ref/worker bookkeeping in transport.go and
// worker.go never needs to know which profile it is driving.
type AcquireReleaser interface {
	// Acquire obtains the Bluetooth-facing fd for t, returning the fd and
	// the negotiated read/write MTU. Acquire must be idempotent: calling
	// it again while already acquired returns the existing fd without a
	// new RPC/syscall (spec.md §4.2 "acquire is a no-op if already
	// acquired").
	Acquire(t *Transport) (fd int, mtuRead int, mtuWrite int, err error)

	// Release tears down the Bluetooth-facing fd for t. Release must be
	// idempotent and must not fail loudly on a peer that already dropped
	// the link (spec.md §4.2 "soft-fail RPC errors during release").
	Release(t *Transport) error
}
