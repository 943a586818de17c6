package output

import (
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/llehouerou/segue/internal/buffer"
)

var speakerInitialized bool

// Device plays an output ring through the system speaker.
type Device struct {
	streamer *Streamer
}

// Open initializes the speaker at the given sample rate and starts draining
// the ring. The speaker is initialized once per process.
func Open(ring *buffer.Playout, sampleRate int) (*Device, error) {
	sr := beep.SampleRate(sampleRate)
	if !speakerInitialized {
		if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
			return nil, err
		}
		speakerInitialized = true
	}

	d := &Device{streamer: NewStreamer(ring)}
	speaker.Play(d.streamer)
	return d, nil
}

// Close stops all speaker playback.
func (d *Device) Close() {
	speaker.Clear()
}
