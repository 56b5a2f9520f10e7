package transport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
	"github.com/bluez-audio/transportd/internal/logging"
)

// SelectA2DPCodec requests a new codec configuration from BlueZ via the
// MediaTransport1 SetConfiguration RPC (spec.md §4.5 "A2DP codec
// select"). If the proposed codec id and configuration blob are both
// already what this transport is running, it returns success without
// issuing an RPC. Per spec.md §4.5, the type field itself is not updated
// here: BlueZ reconfigures the transport asynchronously and reports the
// change back through OnCodecReconfigured.
func (t *Transport) SelectA2DPCodec(bluez BlueZClient, codec CodecID, config A2DPCodecConfiguration) error {
	if !t.Type().Profile.IsA2DP() {
		return txerrors.NewUnsupportedError("codec select on non-A2DP transport")
	}

	if t.Type().Codec == codec && t.a2dpConfiguration().Equal(config) {
		return nil
	}

	ctx, cancel := rpcContext()
	defer cancel()

	return bluez.SetConfiguration(ctx, t.RPCPath, config.Raw)
}

// OnCodecReconfigured commits a codec/configuration change BlueZ has
// actually applied, the asynchronous counterpart to SelectA2DPCodec's
// request (spec.md §4.5). It re-derives the PCM parameters the same way
// transport creation does, narrowing the codec table defaults against
// the new configuration blob (spec.md §4.6).
func (t *Transport) OnCodecReconfigured(codec CodecID, config A2DPCodecConfiguration) error {
	params, err := resolveCodecParams(codec)
	if err != nil {
		return err
	}
	t.setTypeAndConfig(Type{Profile: t.Type().Profile, Codec: codec}, config)
	applyCodecParams(t, params, config)
	return nil
}

// hfpCodecCommandTimeout bounds the AT-command round trip for an in-band
// codec switch; the AG/HF link is a narrow RFCOMM channel and an
// unresponsive peer must not hang the caller.
const hfpCodecCommandTimeout = 2 * time.Second

// SelectHFPCodec drives the HFP in-band codec negotiation sequence
// described in spec.md §4.5: under the transport's codec-switch mutex,
// release both SCO PCM endpoints and the Bluetooth link itself (driving
// bt_fd to -1), send AT+BCS=<codec> naming the codec ID the Bluetooth
// Codec ID registry assigns it, and commit the new codec only once the
// peer's response confirms it. A response that doesn't confirm the
// switch is surfaced as an I/O error and the transport's type is left
// unchanged, matching spec.md §8's requirement that an unconfirmed
// switch leave type.codec alone. Only HFP, not HSP, supports an in-band
// codec switch; this transport must also have an attached RFCOMM session.
func (t *Transport) SelectHFPCodec(codec CodecID) error {
	if !t.Type().Profile.IsHFP() {
		return txerrors.NewUnsupportedError("AT+BCS codec select on non-HFP transport")
	}
	if t.rfcomm == nil {
		return txerrors.NewInvalidArgumentError("rfcomm session")
	}
	if t.Type().Codec == codec {
		return nil
	}

	id, err := hfpCodecID(codec)
	if err != nil {
		return err
	}

	t.codecSwitchMu.Lock()
	defer t.codecSwitchMu.Unlock()

	log := logging.GetLogger("transport:codec").WithComponent(t.RPCPath)

	t.lockPCMs()
	if err := t.playback.CloseFD(nil); err != nil {
		log.Warnf("close playback PCM during codec switch: %v", err)
	}
	if err := t.capture.CloseFD(nil); err != nil {
		log.Warnf("close capture PCM during codec switch: %v", err)
	}
	t.unlockPCMs()

	if err := t.Release(); err != nil {
		log.Warnf("release transport during codec switch: %v", err)
	}

	resp, err := t.rfcomm.SendCommand(bcsCommand(id), hfpCodecCommandTimeout)
	if err != nil {
		return err
	}
	if !strings.Contains(resp, "OK") {
		return txerrors.NewIOError("HFP codec switch", fmt.Errorf("codec switch to %s not confirmed by peer", codec))
	}

	params, err := resolveCodecParams(codec)
	if err != nil {
		return err
	}
	t.setType(Type{Profile: t.Type().Profile, Codec: codec})
	applyCodecParams(t, params, A2DPCodecConfiguration{})
	return nil
}

// hfpCodecID maps a CodecID to the Bluetooth HFP Codec ID used in the
// AT+BCS= command, per the Bluetooth SIG's HFP Codec ID assignment (1 =
// CVSD, 2 = mSBC); these are the only two codecs HFP's AT+BCS negotiates.
func hfpCodecID(codec CodecID) (int, error) {
	switch codec {
	case CodecCVSD:
		return 1, nil
	case CodecMSBC:
		return 2, nil
	default:
		return 0, txerrors.NewUnsupportedError("HFP codec " + codec.String())
	}
}

func bcsCommand(codecID int) string {
	return "AT+BCS=" + strconv.Itoa(codecID)
}
