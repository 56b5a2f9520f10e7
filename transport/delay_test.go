package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransportDelayTotalsComponents(t *testing.T) {
	tr, _ := newTestTransport(t)
	tr.playback.SetDelay(50)

	report := tr.Delay(20)
	require.Equal(t, 50, report.PCM)
	require.Equal(t, codecDelay(CodecSBC), report.Codec)
	require.Equal(t, 20, report.Transport)
	require.Equal(t, 50+codecDelay(CodecSBC)+20, report.Total())
}

func TestCodecDelaySCOCodecsAreZero(t *testing.T) {
	require.Equal(t, 0, codecDelay(CodecCVSD))
	require.Equal(t, 0, codecDelay(CodecMSBC))
}
