// Package marker implements the position marker scheduler: a tick-ordered
// min-priority queue of future playback events. The orchestrator computes
// marker ticks from passage timing metadata; the mixer reports when those
// ticks are reached during mixing. The scheduler itself knows nothing about
// audio content.
package marker

import "github.com/google/uuid"

// Kind identifies what a marker signals when its tick is reached.
type Kind int

const (
	// PositionUpdate reports a periodic playback position milestone.
	PositionUpdate Kind = iota
	// StartCrossfade signals that mixing should switch to crossfade mode
	// with the next passage.
	StartCrossfade
	// SongBoundary signals a song change inside a multi-track passage.
	SongBoundary
	// PassageComplete signals that the passage has been fully mixed.
	PassageComplete
	// EndOfFile signals genuine stream exhaustion before PassageComplete.
	EndOfFile
	// EndOfFileBeforeLeadOut signals exhaustion before a planned crossfade
	// point was reached.
	EndOfFileBeforeLeadOut
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case PositionUpdate:
		return "PositionUpdate"
	case StartCrossfade:
		return "StartCrossfade"
	case SongBoundary:
		return "SongBoundary"
	case PassageComplete:
		return "PassageComplete"
	case EndOfFile:
		return "EndOfFile"
	case EndOfFileBeforeLeadOut:
		return "EndOfFileBeforeLeadOut"
	default:
		return "Unknown"
	}
}

// Event is the payload signalled when a marker fires. Only the fields
// relevant to its Kind are set.
type Event struct {
	Kind Kind

	// PositionMS is the playback position for PositionUpdate.
	PositionMS uint64

	// NextPassageID is the incoming passage for StartCrossfade.
	NextPassageID uuid.UUID

	// SongID is the song entered at a SongBoundary; nil when exiting the
	// last song of the passage.
	SongID *uuid.UUID

	// PlannedCrossfadeTick is where the crossfade would have started, for
	// EndOfFileBeforeLeadOut.
	PlannedCrossfadeTick int64

	// Unreachable lists markers that can never fire, for the end-of-file
	// kinds. Sorted ascending by tick.
	Unreachable []Marker
}

// Marker is a scheduled point of interest relative to passage start.
// Ticks count frames mixed since the passage began.
type Marker struct {
	Tick      int64
	PassageID uuid.UUID
	Event     Event
}
