// Package passage defines the playable units the engine schedules. Timing is
// expressed in ticks: one tick is one stereo frame at the working sample
// rate, counted from the start of the passage.
package passage

import "github.com/google/uuid"

// Song is one entry in a multi-track passage's timeline.
type Song struct {
	// StartTick is where this song begins, relative to passage start.
	StartTick int64
	// ID identifies the song.
	ID uuid.UUID
}

// Passage is a playable unit with defined boundaries. Samples reaching the
// mixer are already pre-faded, so the only timing the engine derives from a
// passage is where to place markers.
type Passage struct {
	ID    uuid.UUID
	Title string

	// DurationTicks is the total length of the passage.
	DurationTicks int64

	// LeadOutTicks is how long before the end a crossfade to the next
	// passage should begin. Zero means use the engine's configured
	// crossfade duration.
	LeadOutTicks int64

	// Songs is the ordered timeline for multi-track passages. Empty for
	// single-song passages. Entries must be sorted by StartTick; the first
	// entry's boundary is the passage start itself and gets no marker.
	Songs []Song
}

// CrossfadeTick returns the tick at which the crossfade to the next passage
// should start, given the engine-wide default in ticks. The result is never
// negative: passages shorter than the fade overlap crossfade from tick zero.
func (p Passage) CrossfadeTick(defaultLeadOut int64) int64 {
	lead := p.LeadOutTicks
	if lead <= 0 {
		lead = defaultLeadOut
	}
	tick := p.DurationTicks - lead
	if tick < 0 {
		tick = 0
	}
	return tick
}
