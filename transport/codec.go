package transport

import (
	"bytes"

	txerrors "github.com/bluez-audio/transportd/internal/errors"
)

// codecParams is the PCM format/channels/rate a codec implies, derived
// from the switch statements in ba_transport_set_codec_a2dp/_sco in
// original_source/src/ba-transport.c. Channel count and rate are the
// table defaults for that codec; applyCodecParams narrows them further
// using the codec's own configuration blob, the way the original reads
// a2dp_codec_lookup_channels/a2dp_codec_lookup_frequency against the
// blob's channel-mode/frequency fields instead of trusting the table
// alone (spec.md §4.6).
type codecParams struct {
	format   SampleFormat
	channels int
	rate     int

	// fastStreamDualDirection marks FastStream, whose music (playback)
	// and voice (capture) legs run at different rates; both endpoints
	// are patched individually in applyCodecParams for this one codec.
	fastStreamDualDirection bool
	voiceRate               int
}

func lookupCodecParams(codec CodecID) (codecParams, error) {
	switch codec {
	case CodecSBC, CodecMPEG12, CodecAAC:
		return codecParams{format: FormatS16LE, channels: 2, rate: 44100}, nil
	case CodecAptX, CodecAptXLL, CodecAptXTWSp:
		return codecParams{format: FormatS16LE, channels: 2, rate: 44100}, nil
	case CodecAptXHD:
		return codecParams{format: FormatS24in32LE, channels: 2, rate: 48000}, nil
	case CodecLDAC:
		return codecParams{format: FormatS32LE, channels: 2, rate: 96000}, nil
	case CodecLC3:
		return codecParams{format: FormatS16LE, channels: 2, rate: 48000}, nil
	case CodecFastStream:
		return codecParams{
			format:                  FormatS16LE,
			channels:                2,
			rate:                    44100,
			fastStreamDualDirection: true,
			voiceRate:               8000,
		}, nil
	case CodecCVSD:
		return codecParams{format: FormatS16LE, channels: 1, rate: 8000}, nil
	case CodecMSBC:
		return codecParams{format: FormatS16LE, channels: 1, rate: 16000}, nil
	default:
		return codecParams{}, txerrors.NewUnsupportedError("codec " + codec.String())
	}
}

// resolveCodecParams is the constructor-facing lookup; kept distinct
// from the codecParams type name above.
func resolveCodecParams(codec CodecID) (codecParams, error) {
	return lookupCodecParams(codec)
}

// Channel-mode bits. The A2DP capability/configuration structures this
// package reads from (a2dp_sbc_t and its MPEG/aptX/aptX-HD/LDAC peers in
// original_source/src/ba-transport.c) all pack the negotiated channel
// mode into the low nibble of the configuration's first byte, one bit
// per mode; exactly one bit is set in a valid configuration blob.
const (
	channelModeMono       byte = 1 << 3
	channelModeDualChannel byte = 1 << 2
	channelModeStereo      byte = 1 << 1
	channelModeJointStereo byte = 1 << 0
)

// Sampling-frequency bits, packed into the high nibble of the same byte.
const (
	freq48000 byte = 1 << 4
	freq44100 byte = 1 << 5
	freq32000 byte = 1 << 6
	freq16000 byte = 1 << 7
)

// A2DPCodecConfiguration is the raw capability/configuration blob BlueZ
// negotiates for an A2DP stream endpoint (spec.md §4.1, §4.6). This
// package does not parse the full codec-specific struct layout, only the
// shared channel-mode/frequency byte every codec's configuration begins
// with, per original_source/src/ba-transport.c's per-codec
// a2dp_codec_lookup_channels/a2dp_codec_lookup_frequency calls.
type A2DPCodecConfiguration struct {
	Raw []byte
}

func (c A2DPCodecConfiguration) byteAt(i int) byte {
	if i < 0 || i >= len(c.Raw) {
		return 0
	}
	return c.Raw[i]
}

// Equal reports whether two configurations carry the same codec
// capability bytes, used by SelectA2DPCodec's already-equal short-circuit
// (spec.md §4.5: "compare proposed codec id and configuration; if both
// equal, return success without an RPC").
func (c A2DPCodecConfiguration) Equal(other A2DPCodecConfiguration) bool {
	return bytes.Equal(c.Raw, other.Raw)
}

// lookupChannelsFromMode returns the channel count the configuration
// blob's channel-mode bits imply, or fallback if no recognized bit is
// set (an empty/absent blob, as with a SCO transport's zero-value
// configuration, always falls through to the codec table default).
func lookupChannelsFromMode(mode byte, fallback int) int {
	switch {
	case mode&channelModeMono != 0:
		return 1
	case mode&(channelModeDualChannel|channelModeStereo|channelModeJointStereo) != 0:
		return 2
	default:
		return fallback
	}
}

// lookupFrequencyFromBits returns the sampling rate the configuration
// blob's frequency bits imply, or fallback if none are set.
func lookupFrequencyFromBits(freq byte, fallback int) int {
	switch {
	case freq&freq16000 != 0:
		return 16000
	case freq&freq32000 != 0:
		return 32000
	case freq&freq44100 != 0:
		return 44100
	case freq&freq48000 != 0:
		return 48000
	default:
		return fallback
	}
}

// applyCodecParams installs the codec-derived PCM parameters on both of
// t's endpoints, narrowing the table defaults in p using config's
// channel-mode/frequency byte where it sets one (spec.md §4.6). The
// FastStream voice leg (capture, used for the phone-call SCO path
// multiplexed alongside A2DP music) reads its own frequency byte and
// always runs mono, while every other codec applies the same derived
// parameters to both legs.
func applyCodecParams(t *Transport, p codecParams, config A2DPCodecConfiguration) {
	channels := lookupChannelsFromMode(config.byteAt(0), p.channels)
	rate := lookupFrequencyFromBits(config.byteAt(0), p.rate)

	t.playback.setParams(p.format, channels, rate)
	if p.fastStreamDualDirection {
		voiceRate := lookupFrequencyFromBits(config.byteAt(1), p.voiceRate)
		t.capture.setParams(FormatS16LE, 1, voiceRate)
		return
	}
	t.capture.setParams(p.format, channels, rate)
}
