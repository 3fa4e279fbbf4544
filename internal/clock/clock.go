// Package clock is the single source of "current time" for the binding engine.
// Components never read the system clock directly; swapping the live clock for
// the export clock changes timestamps and nothing else, which is what makes
// preview and frame-exact export agree.
package clock

import "fmt"

// Clock reports the current playback time in seconds.
type Clock interface {
	Now() float64
}

// Live is driven by animation-tick timestamps. The caller feeds it each tick's
// monotonic timestamp; Now returns the elapsed playback time since start.
type Live struct {
	started bool
	base    float64
	now     float64
}

// NewLive returns a live clock that starts at zero on the first tick.
func NewLive() *Live {
	return &Live{}
}

// Tick records an animation-frame timestamp (seconds, monotonic). Timestamps
// that run backward are ignored so playback time never rewinds.
func (l *Live) Tick(timestamp float64) {
	if !l.started {
		l.started = true
		l.base = timestamp
		l.now = 0
		return
	}
	elapsed := timestamp - l.base
	if elapsed > l.now {
		l.now = elapsed
	}
}

// Now returns the playback time of the latest tick.
func (l *Live) Now() float64 {
	return l.now
}

// Export derives time from a frame counter at a fixed frame rate. Frames
// advance strictly one at a time; there is no skipping, so every output frame
// gets exactly one evaluation pass.
type Export struct {
	fps   float64
	frame int
}

// NewExport returns an export clock positioned at frame zero.
func NewExport(fps float64) (*Export, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("export clock: fps must be positive, got %.2f", fps)
	}
	return &Export{fps: fps}, nil
}

// Now returns frameIndex / fps.
func (e *Export) Now() float64 {
	return float64(e.frame) / e.fps
}

// Frame returns the current frame index.
func (e *Export) Frame() int {
	return e.frame
}

// Advance moves to the next frame.
func (e *Export) Advance() {
	e.frame++
}

// Seek rewinds or fast-forwards to an exact frame, used when an export job
// retries a frame range.
func (e *Export) Seek(frame int) {
	if frame < 0 {
		frame = 0
	}
	e.frame = frame
}
