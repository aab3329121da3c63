// Package audio provides the PCM codec and capture/playback abstractions for
// the hartstem realtime pipeline.
//
// The Realtime API speaks 16-bit little-endian PCM at 24 kHz mono. Capture
// devices deliver linear float samples in [-1.0, 1.0]; this package converts
// between the two representations and resamples capture streams that arrive
// at a different rate. All conversion functions are pure and allocate at most
// O(len(input)) per call — they sit on the hot path and run once per chunk at
// real-time cadence.
package audio

import "fmt"

const (
	// SampleRate is the canonical sample rate of the realtime transport in Hz.
	SampleRate = 24000

	// Channels is the channel count of the realtime transport (mono).
	Channels = 1

	// ChunkSize is the recommended number of samples per streamed chunk.
	ChunkSize = 4096
)

// EncodePCM16 converts linear float samples to signed 16-bit little-endian
// PCM. Samples outside [-1.0, 1.0] are clamped before scaling, so inputs like
// 2.5 or -3.0 can never wrap around the int16 range.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}

		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}

		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// DecodePCM16 converts signed 16-bit little-endian PCM back to linear float
// samples in [-1.0, 1.0]. An odd byte count means the stream is misframed and
// is rejected rather than silently truncated.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("audio: odd PCM16 byte count %d", len(data))
	}

	out := make([]float32, len(data)/2)
	for i := range out {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		out[i] = float32(v) / 0x8000
	}
	return out, nil
}
