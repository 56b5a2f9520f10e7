package transport

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

type fakeBlueZClient struct {
	setConfigCalls int
}

func (f *fakeBlueZClient) Acquire(ctx context.Context, rpcPath string) (*os.File, uint16, uint16, error) {
	return nil, 0, 0, nil
}

func (f *fakeBlueZClient) TryAcquire(ctx context.Context, rpcPath string) (*os.File, uint16, uint16, error) {
	return nil, 0, 0, nil
}

func (f *fakeBlueZClient) Release(ctx context.Context, rpcPath string) error { return nil }

func (f *fakeBlueZClient) SetConfiguration(ctx context.Context, rpcPath string, config []byte) error {
	f.setConfigCalls++
	return nil
}

func (f *fakeBlueZClient) SetVolume(ctx context.Context, rpcPath string, volume uint16) error {
	return nil
}

func TestSelectA2DPCodecRequestsConfigurationWithoutUpdatingType(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr, err := NewA2DPTransport(device, nil, "/test/codecswitch", ProfileA2DPSink, CodecSBC, A2DPCodecConfiguration{}, nil)
	require.NoError(t, err)

	bluez := &fakeBlueZClient{}
	config := A2DPCodecConfiguration{Raw: []byte{0x01}}
	require.NoError(t, tr.SelectA2DPCodec(bluez, CodecAptXHD, config))

	require.Equal(t, 1, bluez.setConfigCalls)
	// Per spec.md §4.5 the type is not updated by the request itself.
	require.Equal(t, CodecSBC, tr.Type().Codec)
	require.Equal(t, FormatS16LE, tr.Playback().Format())
}

func TestSelectA2DPCodecShortCircuitsWhenCodecAndConfigAlreadyMatch(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	config := A2DPCodecConfiguration{Raw: []byte{0x01}}
	tr, err := NewA2DPTransport(device, nil, "/test/codecmatch", ProfileA2DPSink, CodecSBC, config, nil)
	require.NoError(t, err)

	bluez := &fakeBlueZClient{}
	require.NoError(t, tr.SelectA2DPCodec(bluez, CodecSBC, config))
	require.Equal(t, 0, bluez.setConfigCalls)
}

func TestSelectA2DPCodecRejectsSCOTransport(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr, err := NewSCOTransport(device, nil, "/test/sco1", ProfileHFPAG, CodecCVSD, "00:11:22:33:44:55", true, nil)
	require.NoError(t, err)

	require.Error(t, tr.SelectA2DPCodec(&fakeBlueZClient{}, CodecMSBC, A2DPCodecConfiguration{}))
}

func TestOnCodecReconfiguredCommitsTypeAndParams(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr, err := NewA2DPTransport(device, nil, "/test/reconfigured", ProfileA2DPSink, CodecSBC, A2DPCodecConfiguration{}, nil)
	require.NoError(t, err)

	config := A2DPCodecConfiguration{Raw: []byte{0x01}}
	require.NoError(t, tr.OnCodecReconfigured(CodecAptXHD, config))

	require.Equal(t, CodecAptXHD, tr.Type().Codec)
	require.Equal(t, FormatS24in32LE, tr.Playback().Format())
	require.True(t, tr.a2dpConfiguration().Equal(config))
}

type fakeRFCOMMSession struct {
	lastCmd string
	resp    string
	err     error
}

func (f *fakeRFCOMMSession) SendCommand(cmd string, timeout time.Duration) (string, error) {
	f.lastCmd = cmd
	return f.resp, f.err
}

func (f *fakeRFCOMMSession) Close() error { return nil }

func TestSelectHFPCodecSendsBCSCommand(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	session := &fakeRFCOMMSession{resp: "OK"}
	tr, err := NewSCOTransport(device, nil, "/test/sco2", ProfileHFPHF, CodecCVSD, "00:11:22:33:44:55", true, session)
	require.NoError(t, err)

	require.NoError(t, tr.SelectHFPCodec(CodecMSBC))

	require.Equal(t, "AT+BCS=2", session.lastCmd)
	require.Equal(t, CodecMSBC, tr.Type().Codec)
	require.Equal(t, 16000, tr.Playback().Rate())
	require.Equal(t, -1, tr.BTFD())
}

func TestSelectHFPCodecRejectsHSP(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	session := &fakeRFCOMMSession{resp: "OK"}
	tr, err := NewSCOTransport(device, nil, "/test/hsp0", ProfileHSPHS, CodecCVSD, "00:11:22:33:44:55", true, session)
	require.NoError(t, err)

	require.Error(t, tr.SelectHFPCodec(CodecMSBC))
}

func TestSelectHFPCodecRequiresAttachedRFCOMMSession(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	tr, err := NewSCOTransport(device, nil, "/test/norfcomm", ProfileHFPHF, CodecCVSD, "00:11:22:33:44:55", true, nil)
	require.NoError(t, err)

	require.Error(t, tr.SelectHFPCodec(CodecMSBC))
}

func TestSelectHFPCodecUnconfirmedResponseLeavesCodecUnchangedAndIsIOError(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	session := &fakeRFCOMMSession{resp: "BUSY"}
	tr, err := NewSCOTransport(device, nil, "/test/unconfirmed", ProfileHFPHF, CodecCVSD, "00:11:22:33:44:55", true, session)
	require.NoError(t, err)

	err = tr.SelectHFPCodec(CodecMSBC)
	require.Error(t, err)
	require.True(t, errors.Is(err, txerrors.ErrIO))
	require.Equal(t, CodecCVSD, tr.Type().Codec)
	require.Equal(t, -1, tr.BTFD())
}

func TestSelectHFPCodecAlreadySelectedIsNoOp(t *testing.T) {
	device := NewDevice(nil, "AA:BB:CC:DD:EE:FF")
	session := &fakeRFCOMMSession{resp: "OK"}
	tr, err := NewSCOTransport(device, nil, "/test/noop", ProfileHFPHF, CodecCVSD, "00:11:22:33:44:55", true, session)
	require.NoError(t, err)

	require.NoError(t, tr.SelectHFPCodec(CodecCVSD))
	require.Empty(t, session.lastCmd)
}
