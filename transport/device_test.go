package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceRegisterLookupDetach(t *testing.T) {
	device := NewDevice(nil, "11:22:33:44:55:66")
	far := &fakeAcquireReleaser{}
	tr := newTransport(device, nil, "/test/a", Type{Profile: ProfileA2DPSource, Codec: CodecSBC}, far, 127)
	device.register(tr)

	require.Equal(t, 1, device.Len())

	looked, err := device.Lookup("/test/a")
	require.NoError(t, err)
	require.Same(t, tr, looked)
	looked.unref() // release the Lookup-taken reference

	_, err = device.Lookup("/does/not/exist")
	require.Error(t, err)

	device.Detach("/test/a")
	require.Equal(t, 0, device.Len())
	require.Equal(t, int32(1), far.releaseCount)
}

func TestDeviceDestroyRemovesFromRegistry(t *testing.T) {
	device := NewDevice(nil, "11:22:33:44:55:66")
	far := &fakeAcquireReleaser{}
	tr := newTransport(device, nil, "/test/b", Type{Profile: ProfileA2DPSource, Codec: CodecSBC}, far, 127)
	device.register(tr)

	tr.Destroy() // drop the creation-time reference registered takes
	require.Equal(t, 0, device.Len())
}

func TestDeviceAddA2DPTransportRejectsNonA2DPProfile(t *testing.T) {
	device := NewDevice(nil, "11:22:33:44:55:66")
	_, err := device.AddA2DPTransport("/test/c", ProfileHFPHF, CodecSBC, A2DPCodecConfiguration{}, nil)
	require.Error(t, err)
}

func TestDeviceAddSCOTransportRejectsNonSCOProfile(t *testing.T) {
	device := NewDevice(nil, "11:22:33:44:55:66")
	_, err := device.AddSCOTransport("/test/d", ProfileA2DPSource, CodecCVSD, "AA:BB:CC:DD:EE:FF", true, nil)
	require.Error(t, err)
}
