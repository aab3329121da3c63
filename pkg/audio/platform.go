package audio

import "context"

// CaptureDevice abstracts a microphone-like source that produces a continuous
// stream of sample frames at a fixed rate. Implementations are provided by
// platform adapter packages; the engine itself never touches hardware.
//
// This lives under pkg/ because external code (platform adapters, test
// harnesses) is expected to implement it.
type CaptureDevice interface {
	// Start acquires the device and begins capture. The returned channel
	// emits frames in capture order and is closed when capture ends, either
	// via Stop or because the device failed. Returns an error if the device
	// cannot be acquired (permission denied, not found).
	Start(ctx context.Context) (<-chan Frame, error)

	// Stop ends capture and releases the device. Safe to call while a frame
	// is being delivered; no further frames are emitted after Stop returns.
	// Calling Stop more than once is safe.
	Stop() error
}

// Playback abstracts an output sink that accepts decoded sample buffers for
// immediate audible output.
type Playback interface {
	// Play queues one buffer of linear float samples at the canonical rate.
	// Implementations should return quickly; buffering is the sink's concern.
	Play(samples []float32) error
}
