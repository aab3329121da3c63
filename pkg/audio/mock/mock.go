// Package mock provides in-memory mock implementations of [audio.CaptureDevice]
// and [audio.Playback] for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts and arguments, and they expose exported
// fields that the test can set to control return values.
//
// Typical usage:
//
//	dev := &mock.CaptureDevice{
//	    Frames: []audio.Frame{{Samples: []float32{0.1, -0.1}, Rate: 24000}},
//	}
//	frames, err := dev.Start(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/jmolenaar/hartstem/pkg/audio"
)

// ─── CaptureDevice ────────────────────────────────────────────────────────────

// CaptureDevice is a mock implementation of [audio.CaptureDevice]. It emits
// the scripted Frames in order on Start and then keeps the channel open until
// Stop (or ctx cancellation) closes it.
type CaptureDevice struct {
	mu sync.Mutex

	// Frames is the scripted sequence delivered after Start.
	Frames []audio.Frame

	// StartError is returned by Start. When set, no channel is opened.
	StartError error

	// StopError is returned by Stop.
	StopError error

	// CloseAfterFrames closes the frame channel immediately after the last
	// scripted frame instead of waiting for Stop.
	CloseAfterFrames bool

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	stopCh chan struct{}
	once   sync.Once
}

// Start implements [audio.CaptureDevice].
func (d *CaptureDevice) Start(ctx context.Context) (<-chan audio.Frame, error) {
	d.mu.Lock()
	d.CallCountStart++
	if d.StartError != nil {
		err := d.StartError
		d.mu.Unlock()
		return nil, err
	}
	d.stopCh = make(chan struct{})
	stop := d.stopCh
	frames := d.Frames
	closeAfter := d.CloseAfterFrames
	d.mu.Unlock()

	out := make(chan audio.Frame, len(frames)+1)
	go func() {
		defer close(out)
		for _, f := range frames {
			select {
			case out <- f:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
		if closeAfter {
			return
		}
		select {
		case <-stop:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// Stop implements [audio.CaptureDevice].
func (d *CaptureDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountStop++
	if d.stopCh != nil {
		d.once.Do(func() { close(d.stopCh) })
	}
	return d.StopError
}

// ─── Playback ─────────────────────────────────────────────────────────────────

// Playback is a mock implementation of [audio.Playback] that records every
// buffer handed to it.
type Playback struct {
	mu sync.Mutex

	// PlayError is returned by Play.
	PlayError error

	// Played accumulates every buffer passed to Play, in order.
	Played [][]float32
}

// Play implements [audio.Playback].
func (p *Playback) Play(samples []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := make([]float32, len(samples))
	copy(buf, samples)
	p.Played = append(p.Played, buf)
	return p.PlayError
}

// PlayedBuffers returns a snapshot of all buffers played so far.
func (p *Playback) PlayedBuffers() [][]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]float32, len(p.Played))
	copy(out, p.Played)
	return out
}
