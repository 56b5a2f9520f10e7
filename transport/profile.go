// Package transport implements the transport core of the Bluetooth audio
// bridging daemon: per-session bookkeeping, acquire/release of the
// Bluetooth socket, worker goroutine lifecycle, codec selection, and the
// codec/volume/delay mapping tables described in SPEC_FULL.md.
package transport

import "fmt"

// Profile identifies the Bluetooth audio profile a transport speaks.
type Profile int

const (
	ProfileA2DPSource Profile = iota
	ProfileA2DPSink
	ProfileHFPHF
	ProfileHFPAG
	ProfileHSPHS
	ProfileHSPAG
)

func (p Profile) String() string {
	switch p {
	case ProfileA2DPSource:
		return "A2DP-source"
	case ProfileA2DPSink:
		return "A2DP-sink"
	case ProfileHFPHF:
		return "HFP-HF"
	case ProfileHFPAG:
		return "HFP-AG"
	case ProfileHSPHS:
		return "HSP-HS"
	case ProfileHSPAG:
		return "HSP-AG"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// IsA2DP reports whether p is one of the two A2DP profiles.
func (p Profile) IsA2DP() bool {
	return p == ProfileA2DPSource || p == ProfileA2DPSink
}

// IsSCO reports whether p is carried over a SCO link (HFP or HSP).
func (p Profile) IsSCO() bool {
	return !p.IsA2DP()
}

// IsHFP reports whether p is one of the two HFP profiles; only HFP, not
// HSP, supports an in-band codec switch (spec.md §4.5).
func (p Profile) IsHFP() bool {
	return p == ProfileHFPHF || p == ProfileHFPAG
}

// IsHSP reports whether p is one of the two HSP profiles.
func (p Profile) IsHSP() bool {
	return p == ProfileHSPHS || p == ProfileHSPAG
}

// IsSourceOrAG reports whether p is a role that originates audio towards
// the peer: A2DP source or an HFP/HSP audio gateway. Per spec.md §4.7,
// soft-volume scaling suppresses propagating volume_update to the peer
// only for these roles; a sink or HF/HS role always forwards its volume
// control regardless of local scaling.
func (p Profile) IsSourceOrAG() bool {
	return p == ProfileA2DPSource || p == ProfileHFPAG || p == ProfileHSPAG
}

// ProfileTag returns the path component used when publishing PCMs to the
// external PCM IPC surface (spec.md §6): "a2dpsrc", "a2dpsnk", "hfphf",
// "hfpag", "hsphs", "hspag".
func (p Profile) ProfileTag() string {
	switch p {
	case ProfileA2DPSource:
		return "a2dpsrc"
	case ProfileA2DPSink:
		return "a2dpsnk"
	case ProfileHFPHF:
		return "hfphf"
	case ProfileHFPAG:
		return "hfpag"
	case ProfileHSPHS:
		return "hsphs"
	case ProfileHSPAG:
		return "hspag"
	default:
		return "unknown"
	}
}

// CodecID identifies the audio codec negotiated for a transport. The set
// extends spec.md's explicitly named codecs (SBC, aptX, aptX-HD, LDAC,
// FastStream, CVSD, mSBC) with the remaining A2DP codecs present in the
// original BlueALSA codec table (MPEG-1/2, AAC, aptX-LL, aptX-TWS+, LC3),
// since spec.md §4.6 treats "codec mapping" as a general per-codec table
// rather than an enumerated closed set.
type CodecID int

const (
	CodecUnknown CodecID = iota
	CodecSBC
	CodecMPEG12
	CodecAAC
	CodecAptX
	CodecAptXHD
	CodecAptXLL
	CodecAptXTWSp
	CodecFastStream
	CodecLC3
	CodecLDAC
	CodecCVSD
	CodecMSBC
)

func (c CodecID) String() string {
	switch c {
	case CodecSBC:
		return "SBC"
	case CodecMPEG12:
		return "MPEG-1,2"
	case CodecAAC:
		return "AAC"
	case CodecAptX:
		return "aptX"
	case CodecAptXHD:
		return "aptX-HD"
	case CodecAptXLL:
		return "aptX-LL"
	case CodecAptXTWSp:
		return "aptX-TWS+"
	case CodecFastStream:
		return "FastStream"
	case CodecLC3:
		return "LC3"
	case CodecLDAC:
		return "LDAC"
	case CodecCVSD:
		return "CVSD"
	case CodecMSBC:
		return "mSBC"
	default:
		return "unknown"
	}
}

// Type is the mutable {profile, codec} pair of a transport (spec.md §3).
// It is only ever mutated under Transport.typeMu.
type Type struct {
	Profile Profile
	Codec   CodecID
}

func (t Type) String() string {
	return fmt.Sprintf("%s/%s", t.Profile, t.Codec)
}
