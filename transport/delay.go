package transport

// DelayReport is the breakdown of a transport's end-to-end audio delay,
// in hundredths of a millisecond, split by where it is incurred
// (spec.md §4.8 "pcm_delay"). BlueZ's MediaTransport1.Delay property
// only wants the total, but callers (and tests) benefit from seeing the
// components it is built from.
type DelayReport struct {
	PCM       int // local PCM endpoint buffering (PCMEndpoint.delay)
	Codec     int // encoder/decoder algorithmic delay, fixed per codec
	Transport int // BT transport-layer delay BlueZ itself reports back
}

// Total is the sum BlueZ's Delay property (and the original's
// transport_get_delay) exposes.
func (d DelayReport) Total() int {
	return d.PCM + d.Codec + d.Transport
}

// codecDelay is the fixed algorithmic delay contributed by each codec's
// encoder/decoder pipeline, approximated from published encoder lookahead
// figures; SCO codecs run with no lookahead buffer so contribute zero.
func codecDelay(codec CodecID) int {
	switch codec {
	case CodecSBC:
		return 73 // 0.73ms of SBC encoder lookahead
	case CodecMPEG12:
		return 100
	case CodecAAC:
		return 150
	case CodecAptX, CodecAptXLL, CodecAptXTWSp:
		return 10
	case CodecAptXHD:
		return 15
	case CodecLDAC:
		return 180
	case CodecFastStream:
		return 73
	case CodecLC3:
		return 50
	case CodecCVSD, CodecMSBC:
		return 0
	default:
		return 0
	}
}

// Delay computes the current end-to-end delay report for the transport's
// playback endpoint: the codec's fixed delay, the local PCM endpoint's
// own buffering delay, and a transport-layer component the caller
// supplies (e.g. read from BlueZ's own Delay property, when the peer
// reports one).
func (t *Transport) Delay(transportDelay int) DelayReport {
	codec := t.Type().Codec
	return DelayReport{
		PCM:       t.playback.Delay(),
		Codec:     codecDelay(codec),
		Transport: transportDelay,
	}
}
