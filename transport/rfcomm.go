package transport

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

// RFCOMMSession is the AT-command control channel used by HFP to
// negotiate and switch codecs in-band (spec.md §4.5, §6 "RFCOMM
// session"). Grounded in go.bug.st/serial, the teacher's library for
// line-oriented serial I/O; RFCOMM devices expose the same tty-like ioctl
// surface a real serial port does.
type RFCOMMSession interface {
	// SendCommand writes one AT command line (without the trailing
	// \r\n, which SendCommand appends) and blocks until the
	// corresponding OK/ERROR final response arrives or timeout elapses.
	SendCommand(cmd string, timeout time.Duration) (response string, err error)

	// Close releases the underlying serial device.
	Close() error
}

// rfcommSerial implements RFCOMMSession over a go.bug.st/serial port
// opened against a /dev/rfcommN (or BlueZ-assigned) device node.
type rfcommSerial struct {
	port   serial.Port
	reader *bufio.Reader
}

// OpenRFCOMM opens the RFCOMM device node BlueZ assigned for a Profile1
// NewConnection callback.
func OpenRFCOMM(device string) (RFCOMMSession, error) {
	mode := &serial.Mode{BaudRate: 0} // RFCOMM ignores baud rate; ignored by the kernel driver
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, txerrors.NewIOError("open RFCOMM device", err)
	}
	return &rfcommSerial{port: port, reader: bufio.NewReader(port)}, nil
}

func (r *rfcommSerial) SendCommand(cmd string, timeout time.Duration) (string, error) {
	if err := r.port.SetReadTimeout(timeout); err != nil {
		return "", txerrors.NewIOError("set RFCOMM read timeout", err)
	}

	if _, err := r.port.Write([]byte(cmd + "\r\n")); err != nil {
		return "", txerrors.NewIOError("write RFCOMM command", err)
	}

	deadline := time.Now().Add(timeout)
	var lines []string
	for time.Now().Before(deadline) {
		line, err := r.reader.ReadString('\n')
		if err != nil {
			return "", txerrors.NewIOError("read RFCOMM response", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if line == "OK" || strings.HasPrefix(line, "ERROR") {
			break
		}
	}
	if len(lines) == 0 {
		return "", txerrors.NewIOError("RFCOMM response", fmt.Errorf("timed out waiting for response to %q", cmd))
	}
	final := lines[len(lines)-1]
	if strings.HasPrefix(final, "ERROR") {
		return strings.Join(lines, "\n"), txerrors.NewIOError("RFCOMM command "+cmd, fmt.Errorf("%s", final))
	}
	return strings.Join(lines, "\n"), nil
}

func (r *rfcommSerial) Close() error {
	return r.port.Close()
}
