// Package audio holds the primitive sample types shared by the buffering,
// mixing and output layers.
package audio

// Frame is one stereo sample pair. Samples are float32 in [-1.0, 1.0];
// values outside that range are clamped at the mixing stage.
type Frame struct {
	L float32
	R float32
}

// Zero is a silent frame.
var Zero = Frame{}

// Clamp limits both channels to the valid sample range.
func (f Frame) Clamp() Frame {
	return Frame{L: clampSample(f.L), R: clampSample(f.R)}
}

// Scale multiplies both channels by v.
func (f Frame) Scale(v float32) Frame {
	return Frame{L: f.L * v, R: f.R * v}
}

// Add sums two frames channel-wise.
func (f Frame) Add(o Frame) Frame {
	return Frame{L: f.L + o.L, R: f.R + o.R}
}

func clampSample(s float32) float32 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}
