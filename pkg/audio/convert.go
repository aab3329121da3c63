package audio

import (
	"log/slog"
	"sync"
	"time"
)

// Frame is one buffer of captured audio samples. Frames are the atomic unit
// of the capture path: devices emit them, the converter normalises them, and
// the session manager encodes them onto the wire.
type Frame struct {
	// Samples holds linear float samples in [-1.0, 1.0].
	Samples []float32

	// Rate is the sample rate in Hz at which Samples were captured.
	Rate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// FrameConverter resamples mono frames to a target rate. It logs a warning on
// the first rate mismatch only. Create one per capture stream; not designed
// for shared use across goroutines.
type FrameConverter struct {
	TargetRate     int
	warnedMismatch sync.Once
}

// Convert resamples a frame to the target rate. If the source rate already
// matches, the frame is returned unchanged (zero allocation).
func (c *FrameConverter) Convert(frame Frame) Frame {
	if frame.Rate == c.TargetRate || frame.Rate <= 0 {
		return frame
	}

	c.warnedMismatch.Do(func() {
		slog.Warn("audio rate mismatch: resampling capture stream",
			"from_hz", frame.Rate,
			"to_hz", c.TargetRate,
		)
	})

	return Frame{
		Samples:   ResampleMono(frame.Samples, frame.Rate, c.TargetRate),
		Rate:      c.TargetRate,
		Timestamp: frame.Timestamp,
	}
}

// ResampleMono resamples mono float samples from srcRate to dstRate using
// linear interpolation. If srcRate == dstRate, the input is returned
// unchanged.
func ResampleMono(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}

	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}

		out[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}
