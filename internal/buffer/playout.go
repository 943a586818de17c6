// Package buffer provides the per-passage playout ring buffers that sit
// between the decode/fade producers and the mixer. Each ring is a
// single-producer single-consumer structure: the producer pushes pre-faded
// frames and eventually marks decode complete; the mixer pops frames without
// ever blocking. Emptiness alone never means end of stream; only an empty
// ring whose producer has finished is exhausted.
package buffer

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/llehouerou/segue/internal/audio"
)

// DefaultCapacityFrames holds about 15 seconds of audio at 44.1 kHz.
const DefaultCapacityFrames = 661500

// Decoder flow-control thresholds as fractions of capacity. The producer
// should pause above the high mark and may resume below the low mark; the
// gap provides hysteresis so it does not thrash.
const (
	decoderPauseFraction  = 0.90
	decoderResumeFraction = 0.75
)

// Stats is a point-in-time snapshot of a playout ring.
type Stats struct {
	Capacity       int
	Occupied       int
	TotalPushed    uint64
	TotalPopped    uint64
	Underruns      uint64
	DecodeComplete bool
}

// Playout is a lock-free SPSC ring buffer of stereo frames. Exactly one
// goroutine may push and exactly one may pop; both sides use atomic indices
// and neither ever blocks.
type Playout struct {
	passageID uuid.UUID

	frames []audio.Frame
	// head is the next write position, tail the next read position. Both
	// increase monotonically; index into frames via modulo capacity.
	head atomic.Uint64
	tail atomic.Uint64

	decodeComplete atomic.Bool
	underruns      atomic.Uint64
}

// NewPlayout creates a ring for the given passage. Capacities below one
// frame fall back to DefaultCapacityFrames.
func NewPlayout(passageID uuid.UUID, capacityFrames int) *Playout {
	if capacityFrames < 1 {
		capacityFrames = DefaultCapacityFrames
	}
	return &Playout{
		passageID: passageID,
		frames:    make([]audio.Frame, capacityFrames),
	}
}

// PassageID returns the passage this ring buffers for.
func (p *Playout) PassageID() uuid.UUID { return p.passageID }

// PushFrame appends one frame. Returns false when the ring is full; the
// producer should back off and retry rather than drop audio.
func (p *Playout) PushFrame(f audio.Frame) bool {
	head := p.head.Load()
	tail := p.tail.Load()
	if head-tail >= uint64(len(p.frames)) {
		return false
	}
	p.frames[head%uint64(len(p.frames))] = f
	p.head.Store(head + 1)
	return true
}

// PopFrame removes and returns the oldest frame. The second return is false
// when the ring is momentarily empty; callers must not infer end of stream
// from that alone; see IsExhausted.
func (p *Playout) PopFrame() (audio.Frame, bool) {
	tail := p.tail.Load()
	if tail == p.head.Load() {
		if !p.decodeComplete.Load() {
			p.underruns.Add(1)
		}
		return audio.Zero, false
	}
	f := p.frames[tail%uint64(len(p.frames))]
	p.tail.Store(tail + 1)
	return f, true
}

// MarkDecodeComplete records that the producer will push no further frames.
// Called by the producer side once decoding (and fade application) finished.
func (p *Playout) MarkDecodeComplete() {
	p.decodeComplete.Store(true)
}

// IsExhausted reports genuine end of stream: decode finished and every
// buffered frame consumed. A merely empty ring with an active producer is an
// underrun, not exhaustion.
func (p *Playout) IsExhausted() bool {
	return p.decodeComplete.Load() && p.Len() == 0
}

// Len returns the number of buffered frames.
func (p *Playout) Len() int {
	return int(p.head.Load() - p.tail.Load())
}

// Cap returns the ring capacity in frames.
func (p *Playout) Cap() int { return len(p.frames) }

// FillPercent returns occupancy as a fraction in [0, 1].
func (p *Playout) FillPercent() float64 {
	return float64(p.Len()) / float64(len(p.frames))
}

// ShouldDecoderPause reports that the ring is nearly full and the producer
// should stop pushing for now.
func (p *Playout) ShouldDecoderPause() bool {
	return p.FillPercent() >= decoderPauseFraction
}

// CanDecoderResume reports that occupancy has dropped enough for a paused
// producer to continue.
func (p *Playout) CanDecoderResume() bool {
	return p.FillPercent() <= decoderResumeFraction
}

// Stats returns a snapshot of the ring counters.
func (p *Playout) Stats() Stats {
	head := p.head.Load()
	tail := p.tail.Load()
	return Stats{
		Capacity:       len(p.frames),
		Occupied:       int(head - tail),
		TotalPushed:    head,
		TotalPopped:    tail,
		Underruns:      p.underruns.Load(),
		DecodeComplete: p.decodeComplete.Load(),
	}
}
