package transport

import (
	"math"
	"strconv"

	"github.com/bluez-audio/transportd/internal/utils"
)

// volumeMinDB is the floor of the user-visible dB range spec.md §4.7
// maps volume levels onto; anything at or below it maps to BT volume 0.
const volumeMinDB = -9600 // -96.00 dB in the Level int16 unit (dB x 100)

// levelToBT converts a user-visible volume level (dB x 100, with Muted
// forcing raw volume to zero regardless of level) to the peer's raw
// Bluetooth volume scale 0..max, using a logarithmic mapping so that
// equal steps in raw volume feel like equal loudness steps
// (ba-transport.c's BT_VOLUME mapping, spec.md §4.7).
func levelToBT(v ChannelVolume, max int) int {
	if v.Muted || max <= 0 {
		return 0
	}
	if v.Level <= volumeMinDB {
		return 0
	}

	db := float64(v.Level) / 100.0
	ratio := math.Pow(10, db/20.0) // linear amplitude ratio for db decibels
	raw := int(math.Round(ratio * float64(max)))
	return utils.Clamp(raw, 0, max)
}

// btToLevel is levelToBT's inverse: convert a raw 0..max Bluetooth volume
// back to a dB x 100 level. Raw 0 maps to volumeMinDB rather than -Inf so
// the value remains representable and round-trips through levelToBT back
// to 0.
func btToLevel(raw, max int) ChannelVolume {
	if max <= 0 || raw <= 0 {
		return ChannelVolume{Level: volumeMinDB, Muted: raw <= 0}
	}
	ratio := float64(raw) / float64(max)
	db := 20.0 * math.Log10(ratio)
	level := int16(utils.Clamp(int(math.Round(db*100)), volumeMinDB, 0))
	return ChannelVolume{Level: level}
}

// meanChannelVolume averages a two-channel volume state into the single
// level propagate's levelToBT call expects. Either channel reporting
// Muted mutes the mean, since the peer has only one raw volume knob per
// direction and a muted channel must not be drowned out by an average
// (spec.md §4.7).
func meanChannelVolume(volumes [2]ChannelVolume) ChannelVolume {
	if volumes[0].Muted || volumes[1].Muted {
		return ChannelVolume{Level: volumeMinDB, Muted: true}
	}
	mean := (int(volumes[0].Level) + int(volumes[1].Level)) / 2
	return ChannelVolume{Level: int16(mean)}
}

// VolumeUpdate applies a new channel volume to endpoint and, unless
// soft-volume scaling suppresses it, propagates the equivalent raw
// Bluetooth volume to the peer: the MediaTransport1 Volume property for
// an A2DP transport, or the AT+VGS/AT+VGM command over the RFCOMM control
// channel for an HFP/HSP one (spec.md §4.7 "volume_update", §6).
//
// Per spec.md, soft-volume suppresses propagation only when the
// transport's profile is A2DP-source or an HFP/HSP audio gateway
// (Profile.IsSourceOrAG) — the role that originates audio towards the
// peer. A Muted channel always propagates raw volume 0 regardless of
// soft-volume, since a peer-side mute must silence the peer's own
// amplifier even when this process is also scaling locally. The
// propagated value is levelToBT of the mean across both channels, not
// just the channel that changed, since the peer has one raw volume knob
// per direction.
func (t *Transport) VolumeUpdate(endpoint *PCMEndpoint, channel int, v ChannelVolume, bluez BlueZClient) error {
	if err := endpoint.SetVolume(channel, v); err != nil {
		return err
	}

	soft := endpoint.SoftVolume()
	profile := t.Type().Profile

	if soft && !v.Muted && profile.IsSourceOrAG() {
		return nil
	}

	mean := meanChannelVolume(endpoint.Volume())
	raw := levelToBT(mean, endpoint.MaxBTVolume())
	if v.Muted {
		raw = 0
	}

	return t.propagateVolume(endpoint, bluez, raw)
}

// propagateVolume dispatches a raw Bluetooth volume to the peer over the
// channel appropriate to the transport's carrier: MediaTransport1's
// Volume property for A2DP, AT+VGS (speaker) or AT+VGM (microphone) for
// HFP/HSP, chosen by which PCM direction changed. A transport with no
// attached client for its carrier (bluez nil, or no RFCOMM session) has
// nothing to propagate to and is not an error.
func (t *Transport) propagateVolume(endpoint *PCMEndpoint, bluez BlueZClient, raw int) error {
	if t.Type().Profile.IsA2DP() {
		if bluez == nil {
			return nil
		}
		ctx, cancel := rpcContext()
		defer cancel()
		return bluez.SetVolume(ctx, t.RPCPath, uint16(raw))
	}

	if t.rfcomm == nil {
		return nil
	}
	cmd := "AT+VGS=" + strconv.Itoa(raw)
	if endpoint.Mode() == PCMModeSinkFromClient {
		cmd = "AT+VGM=" + strconv.Itoa(raw)
	}
	_, err := t.rfcomm.SendCommand(cmd, hfpCodecCommandTimeout)
	return err
}

// SetSoftVolume toggles whether this endpoint scales PCM samples locally
// instead of relying on the peer's own volume control (spec.md §4.1
// "soft_volume").
func (p *PCMEndpoint) SetSoftVolume(soft bool) {
	p.mu.Lock()
	p.softVolume = soft
	p.mu.Unlock()
}

// SoftVolume reports whether local volume scaling is active.
func (p *PCMEndpoint) SoftVolume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.softVolume
}
