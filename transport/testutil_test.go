package transport

import (
	"errors"

	"github.com/bluez-audio/transportd/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.GetLogger("transport:test")
}

var errBoom = errors.New("boom")
