package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfileClassification(t *testing.T) {
	require.True(t, ProfileA2DPSource.IsA2DP())
	require.True(t, ProfileA2DPSink.IsA2DP())
	require.False(t, ProfileHFPHF.IsA2DP())

	require.True(t, ProfileHFPHF.IsSCO())
	require.True(t, ProfileHSPAG.IsSCO())
	require.False(t, ProfileA2DPSource.IsSCO())

	require.True(t, ProfileHFPHF.IsHFP())
	require.True(t, ProfileHFPAG.IsHFP())
	require.False(t, ProfileHSPHS.IsHFP())

	require.True(t, ProfileHSPHS.IsHSP())
	require.False(t, ProfileHFPHF.IsHSP())
}

func TestProfileTag(t *testing.T) {
	cases := map[Profile]string{
		ProfileA2DPSource: "a2dpsrc",
		ProfileA2DPSink:   "a2dpsnk",
		ProfileHFPHF:      "hfphf",
		ProfileHFPAG:      "hfpag",
		ProfileHSPHS:      "hsphs",
		ProfileHSPAG:      "hspag",
	}
	for profile, want := range cases {
		require.Equal(t, want, profile.ProfileTag())
	}
}

func TestTypeString(t *testing.T) {
	typ := Type{Profile: ProfileA2DPSource, Codec: CodecSBC}
	require.Equal(t, "A2DP-source/SBC", typ.String())
}
