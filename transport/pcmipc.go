package transport

import "github.com/bluez-audio/transportd/internal/logging"

// PCMRegistrar is the external PCM IPC surface a transport publishes
// itself to once its endpoints' parameters are known (spec.md §6 "PCM
// registrar"). Client applications discover and open PCM endpoints
// through whatever this implements; the transport core never opens a
// client-facing socket itself.
type PCMRegistrar interface {
	// Publish announces a PCM endpoint is available at path with the
	// given format/channels/rate.
	Publish(path string, format SampleFormat, channels, rate int) error

	// Withdraw announces a previously published PCM endpoint is gone.
	Withdraw(path string) error
}

// logPCMRegistrar is the default PCMRegistrar used when no richer IPC
// transport (a Unix socket server, D-Bus object, etc., all out of scope
// per spec.md §1) has been wired in: it just logs, following the
// teacher's pattern of a minimal default collaborator implementation
// that a caller can override (internal/driver.BaseDriver's default
// no-op Commander/Eventer).
type logPCMRegistrar struct {
	log *logging.Logger
}

// NewLogPCMRegistrar returns a PCMRegistrar that only logs publish/
// withdraw events.
func NewLogPCMRegistrar() PCMRegistrar {
	return &logPCMRegistrar{log: logging.GetLogger("transport:pcmipc")}
}

func (r *logPCMRegistrar) Publish(path string, format SampleFormat, channels, rate int) error {
	r.log.Infof("publish %s format=%d channels=%d rate=%d", path, format, channels, rate)
	return nil
}

func (r *logPCMRegistrar) Withdraw(path string) error {
	r.log.Infof("withdraw %s", path)
	return nil
}

// Publish announces t's playback endpoint to registrar and, for an SCO
// transport only, its capture endpoint as well.
func (t *Transport) Publish(registrar PCMRegistrar) error {
	if err := registrar.Publish(t.playback.IPCPath(), t.playback.Format(), t.playback.Channels(), t.playback.Rate()); err != nil {
		return err
	}
	if t.Type().Profile.IsSCO() {
		return registrar.Publish(t.capture.IPCPath(), t.capture.Format(), t.capture.Channels(), t.capture.Rate())
	}
	return nil
}

// Withdraw announces t's playback endpoint is gone and, for an SCO
// transport only, its capture endpoint as well.
func (t *Transport) Withdraw(registrar PCMRegistrar) error {
	err := registrar.Withdraw(t.playback.IPCPath())
	if t.Type().Profile.IsSCO() {
		if werr := registrar.Withdraw(t.capture.IPCPath()); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
