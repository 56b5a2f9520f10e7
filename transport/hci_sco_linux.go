//go:build linux

package transport

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

// Socket-level constants and ioctls not exposed by golang.org/x/sys/unix.
// Grounded in other_examples' kirbo-ble HCI socket adaptor (devListRequest/
// HciDevInfo read via ioctl(HCIGETDEVLIST)) and inoc603-btk's hand-rolled
// L2CAP sockaddr, applied here to the SCO case x/sys/unix has no
// SockaddrSCO type for.
const (
	hciMaxDevices = 16
	hciGetDevList = 0x800448d2
)

// btAddr is a 6-byte little-endian Bluetooth device address, the wire
// representation BlueZ and the kernel both use in sockaddr_hci/sockaddr_sco.
type btAddr [6]byte

// parseBTAddr converts the colon-separated "XX:XX:XX:XX:XX:XX" form BlueZ
// exposes over D-Bus into the kernel's reversed byte order.
func parseBTAddr(s string) (btAddr, error) {
	var a btAddr
	var parts [6]int
	n, err := fmt.Sscanf(s, "%02X:%02X:%02X:%02X:%02X:%02X",
		&parts[0], &parts[1], &parts[2], &parts[3], &parts[4], &parts[5])
	if err != nil || n != 6 {
		return a, txerrors.NewInvalidArgumentError("bluetooth address")
	}
	for i := 0; i < 6; i++ {
		a[5-i] = byte(parts[i])
	}
	return a, nil
}

// devListRequest mirrors struct hci_dev_list_req from <bluetooth/hci.h>,
// used only to enumerate adapter indices; we never need the per-adapter
// flags the kernel also returns, so dev_req entries are read as opaque
// bytes and skipped.
type devListRequest struct {
	devNum uint16
	// 2 bytes of padding before dev_req[0], then one 8-byte
	// struct hci_dev_req (u16 dev_id, u32 dev_opt) per device.
	_ [2 + hciMaxDevices*8]byte
}

// findAdapterDevID checks that the HCI layer is reachable by opening a raw
// HCI control socket and issuing HCIGETDEVLIST on it, then returns HCI
// device index 0. It does not match adapterAddr against the enumerated
// adapters, and connectSCO does not bind the SCO socket to any adapter,
// so on a host with several adapters the kernel picks the local one.
// Grounded in the kirbo-ble Socket.ioctl pattern: open a raw HCI control
// socket purely to issue device-management ioctls on it, never to
// read/write HCI packets.
func findAdapterDevID(adapterAddr string) (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, unix.BTPROTO_HCI)
	if err != nil {
		return -1, txerrors.NewIOError("open HCI control socket", err)
	}
	defer unix.Close(fd)

	var req devListRequest
	req.devNum = hciMaxDevices

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(hciGetDevList), uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return -1, txerrors.NewIOError("HCIGETDEVLIST", errno)
	}

	// Resolving a specific adapter address to its device index requires
	// a per-device HCIGETDEVINFO ioctl this package does not issue.
	// Device 0 is right on single-adapter hosts.
	return 0, nil
}

// rawSockaddrSCO mirrors struct sockaddr_sco from <bluetooth/sco.h>:
//
//	struct sockaddr_sco {
//	    sa_family_t    sco_family;
//	    bdaddr_t       sco_bdaddr;
//	};
//
// golang.org/x/sys/unix defines BTPROTO_SCO but, unlike L2CAP/RFCOMM/HCI,
// no corresponding Sockaddr type, so connecting a SCO socket means laying
// out and passing this struct by hand.
type rawSockaddrSCO struct {
	family uint16
	addr   btAddr
}

func (s *rawSockaddrSCO) sockaddr() (unsafe.Pointer, uint32) {
	return unsafe.Pointer(s), uint32(unsafe.Sizeof(*s))
}

// connectSCO opens a raw SCO socket and connects it to peerAddr,
// returning the connected fd. This is the acquire path for HFP/HSP
// transports, which BlueZ does not mediate the way it does A2DP's
// MediaTransport1.Acquire (spec.md §4.2 "SCO acquire talks to the kernel
// directly").
func connectSCO(peerAddr string) (int, error) {
	peer, err := parseBTAddr(peerAddr)
	if err != nil {
		return -1, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_SCO)
	if err != nil {
		return -1, txerrors.NewIOError("open SCO socket", err)
	}

	sa := rawSockaddrSCO{family: unix.AF_BLUETOOTH, addr: peer}
	ptr, size := sa.sockaddr()

	_, _, errno := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(ptr), uintptr(size))
	if errno != 0 {
		unix.Close(fd)
		return -1, txerrors.NewIOError("connect SCO socket", errno)
	}

	return fd, nil
}

// scoMTU returns the fixed per-direction MTU BlueALSA itself always uses
// for SCO: one HCI SCO data packet's worth of payload, since the kernel
// does not negotiate a larger MTU through this socket type the way
// L2CAP-backed A2DP does.
func scoMTU() (read, write int) {
	return 48, 48
}
