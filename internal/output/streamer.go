// Package output bridges the engine's mixed output ring to the audio
// device through beep. The streamer side never blocks on the mixing loop:
// when the ring runs dry it emits silence and lets the loop catch up.
package output

import (
	"github.com/gopxl/beep/v2"

	"github.com/llehouerou/segue/internal/buffer"
)

var _ beep.Streamer = (*Streamer)(nil)

// Streamer drains a playout ring as a beep.Streamer. It is the single
// consumer of the ring; the engine's mixing loop is the single producer.
type Streamer struct {
	ring *buffer.Playout
}

// NewStreamer wraps the engine's output ring.
func NewStreamer(ring *buffer.Playout) *Streamer {
	return &Streamer{ring: ring}
}

// Stream implements beep.Streamer. It always fills the requested window,
// substituting silence for frames the ring does not have yet, and never
// reports the stream as finished: the engine decides when playback ends.
func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		f, popped := s.ring.PopFrame()
		if !popped {
			samples[i] = [2]float64{}
			continue
		}
		samples[i] = [2]float64{float64(f.L), float64(f.R)}
	}
	return len(samples), true
}

// Err implements beep.Streamer.
func (s *Streamer) Err() error { return nil }
